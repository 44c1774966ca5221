// Package location resolves where a photo was taken. The Service asks a
// Provider for a fresh fix, falls back to the last known one, and turns
// coordinates into a postal address through a Geocoder. Absence of a fix or
// an address is a normal outcome and is reported as nil, not as an error.
package location

import (
	"context"
	"time"
)

// Permission is the set of location grants the user has given.
type Permission struct {
	Fine   bool
	Coarse bool
}

// Granted reports whether any location access is allowed.
func (p Permission) Granted() bool {
	return p.Fine || p.Coarse
}

// Priority trades accuracy for power.
type Priority int

const (
	PriorityBalancedPowerAccuracy Priority = iota
	PriorityHighAccuracy
)

func (p Priority) String() string {
	if p == PriorityHighAccuracy {
		return "high_accuracy"
	}
	return "balanced_power_accuracy"
}

// Location is a geographic fix.
type Location struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the estimated horizontal error in metres, 0 if unknown.
	Accuracy float64
	Time     time.Time
}

// Details is a reverse-geocoded address. Every field is optional.
type Details struct {
	Street       *string
	StreetNumber *string
	City         *string
	Country      *string
}

// Request parameterises a fresh fix.
type Request struct {
	Priority Priority
	// Duration bounds how long the provider may keep trying.
	Duration time.Duration
	// MaxUpdateAge is the oldest cached fix the provider may return.
	MaxUpdateAge time.Duration
}

// Provider is the platform location source. CurrentLocation must stop and
// release its request once ctx is done.
type Provider interface {
	Permissions(ctx context.Context) Permission
	CurrentLocation(ctx context.Context, req Request) (*Location, error)
	LastLocation(ctx context.Context) (*Location, error)
}

// Geocoder turns coordinates into at most max addresses.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64, max int) ([]Details, error)
}
