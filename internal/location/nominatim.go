package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/models"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	userAgent           = "GoOutside/1.0 (outdoor photo diary)"
)

// NominatimGeocoder reverse-geocodes through an OpenStreetMap Nominatim
// server. Nominatim returns a single best match per request.
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewNominatimGeocoder(baseURL string, client *http.Client) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NominatimGeocoder{baseURL: baseURL, client: client}
}

type nominatimReverse struct {
	Error   string `json:"error"`
	Address struct {
		Road         string `json:"road"`
		Pedestrian   string `json:"pedestrian"`
		HouseNumber  string `json:"house_number"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		Country      string `json:"country"`
	} `json:"address"`
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64, max int) ([]Details, error) {
	if max <= 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("nominatim: unexpected status %s", resp.Status)
	}

	var r nominatimReverse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}
	if r.Error != "" {
		// "Unable to geocode" means no address at these coordinates.
		return nil, nil
	}

	a := r.Address
	d := Details{
		Street:       models.StringPtr(firstNonEmpty(a.Road, a.Pedestrian)),
		StreetNumber: models.StringPtr(a.HouseNumber),
		City:         models.StringPtr(firstNonEmpty(a.City, a.Town, a.Village, a.Municipality)),
		Country:      models.StringPtr(a.Country),
	}
	if d == (Details{}) {
		return nil, nil
	}
	return []Details{d}, nil
}
