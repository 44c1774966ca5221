package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/location"
)

const (
	MediaBackendFile = "file"
	MediaBackendS3   = "s3"

	// GeocoderOff disables reverse geocoding.
	GeocoderOff = "off"
)

// Config holds runtime settings for the diary CLI.
type Config struct {
	DatabaseDSN string

	MediaBackend string
	MediaDir     string
	MediaFormat  string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string

	OllamaURL   string
	OllamaModel string

	LocationTimeout    time.Duration
	HighAccuracy       bool
	StaticFix          string
	LocationPermission string
	GeocoderURL        string

	AnalysisDelay time.Duration
	LogLevel      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "gooutside.db"
	c.MediaBackend = MediaBackendFile
	c.MediaDir = "photos"
	c.MediaFormat = "jpeg"
	c.S3Region = "us-east-1"
	c.OllamaURL = "http://localhost:11434"
	c.OllamaModel = "llava"
	c.LocationTimeout = 15 * time.Second
	c.HighAccuracy = true
	c.LocationPermission = "fine"
	c.GeocoderURL = location.DefaultNominatimURL
	c.AnalysisDelay = 1500 * time.Millisecond
	c.LogLevel = "info"
}

// Load builds a Config from defaults, then the JSON file named by -c/-config
// in args, then the flags in args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and the static fix.
func (c *Config) Validate() error {
	switch c.MediaBackend {
	case MediaBackendFile:
	case MediaBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("config: s3 media backend requires a bucket")
		}
	default:
		return fmt.Errorf("config: unknown media backend %q", c.MediaBackend)
	}
	if _, err := c.Permission(); err != nil {
		return err
	}
	if _, err := c.Fix(); err != nil {
		return err
	}
	return nil
}

// Permission maps LocationPermission to the grants it implies.
func (c *Config) Permission() (location.Permission, error) {
	switch strings.ToLower(c.LocationPermission) {
	case "fine":
		return location.Permission{Fine: true, Coarse: true}, nil
	case "coarse":
		return location.Permission{Coarse: true}, nil
	case "none", "":
		return location.Permission{}, nil
	}
	return location.Permission{}, fmt.Errorf("config: unknown location permission %q", c.LocationPermission)
}

// Fix parses StaticFix. It returns nil when no fix is configured.
func (c *Config) Fix() (*location.Location, error) {
	if strings.TrimSpace(c.StaticFix) == "" {
		return nil, nil
	}
	latS, lonS, ok := strings.Cut(c.StaticFix, ",")
	if !ok {
		return nil, fmt.Errorf("config: static fix %q is not \"lat,lon\"", c.StaticFix)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("config: invalid latitude %q", latS)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("config: invalid longitude %q", lonS)
	}
	return &location.Location{Latitude: lat, Longitude: lon}, nil
}
