package location

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/logging"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultDuration     = 10 * time.Second
	DefaultMaxUpdateAge = 30 * time.Second
)

// Service is safe for concurrent use. It never caches fixes.
type Service struct {
	provider Provider
	geocoder Geocoder
	log      logging.Logger
	timeout  time.Duration
}

// NewService builds a Service. geocoder may be nil, in which case
// ReverseGeocode always returns nil. A non-positive timeout means
// DefaultTimeout.
func NewService(p Provider, g Geocoder, log logging.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{provider: p, geocoder: g, log: log, timeout: timeout}
}

// CurrentLocation returns a fresh fix when one arrives within the service
// timeout, otherwise the provider's last known fix. It returns nil, nil when
// location access is not granted or nothing is known. The only error is
// ctx's own, when the caller cancels.
func (s *Service) CurrentLocation(ctx context.Context, highAccuracy bool) (*Location, error) {
	if !s.provider.Permissions(ctx).Granted() {
		s.log.Debug(ctx, "no location permission")
		return nil, nil
	}

	req := Request{
		Priority:     PriorityBalancedPowerAccuracy,
		Duration:     DefaultDuration,
		MaxUpdateAge: DefaultMaxUpdateAge,
	}
	if highAccuracy {
		req.Priority = PriorityHighAccuracy
	}

	fresh, err := s.fresh(ctx, req)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		s.log.Warn(ctx, "fresh location unavailable", "error", err)
	}
	if fresh != nil {
		s.log.Debug(ctx, "got fresh location", "lat", fresh.Latitude, "lon", fresh.Longitude)
		return fresh, nil
	}

	last, err := s.provider.LastLocation(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		s.log.Warn(ctx, "last known location unavailable", "error", err)
		return nil, nil
	}
	if last != nil {
		s.log.Debug(ctx, "got last known location", "lat", last.Latitude, "lon", last.Longitude)
	}
	return last, nil
}

// fresh waits for the provider under a derived deadline. Leaving this
// function cancels the derived context, which releases the provider request.
func (s *Service) fresh(ctx context.Context, req Request) (*Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		loc *Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := s.provider.CurrentLocation(ctx, req)
		ch <- result{loc, err}
	}()

	select {
	case r := <-ch:
		return r.loc, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReverseGeocode returns the first address for loc, or nil when loc is nil,
// the geocoder fails or nothing is found.
func (s *Service) ReverseGeocode(ctx context.Context, loc *Location) *Details {
	if loc == nil || s.geocoder == nil {
		return nil
	}

	ds, err := s.geocoder.Reverse(ctx, loc.Latitude, loc.Longitude, 1)
	if err != nil {
		s.log.Warn(ctx, "reverse geocoding failed", "error", err)
		return nil
	}
	if len(ds) == 0 {
		return nil
	}
	d := ds[0]
	return &d
}
