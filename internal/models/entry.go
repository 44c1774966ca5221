// Package models defines the diary data model shared by the store, the
// capture session and the interface layer.
package models

import "time"

// DiaryEntry is one persisted outdoor-photo session.
//
// All location fields are optional and independent: coordinates may be known
// while the reverse-geocoded text is not, and vice versa.
type DiaryEntry struct {
	// ID is assigned by the store on insert and never changes afterwards.
	ID int64 `json:"id"`

	// CreationDate is the calendar day of the entry (see Date).
	CreationDate time.Time `json:"creation_date"`

	// ImagePath is the opaque media reference returned by the media store.
	ImagePath string `json:"image_path"`

	Street       *string `json:"street,omitempty"`
	StreetNumber *string `json:"street_number,omitempty"`
	City         *string `json:"city,omitempty"`
	Country      *string `json:"country,omitempty"`

	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
}

// HasLocation reports whether any location field is present.
func (e DiaryEntry) HasLocation() bool {
	return e.Street != nil || e.StreetNumber != nil || e.City != nil || e.Country != nil ||
		e.Longitude != nil || e.Latitude != nil
}

// Date truncates t to its calendar day at 00:00 UTC, keeping the wall-clock
// date of t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a date-only value.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EpochDay is the number of days since 1970-01-01 for the date of t; it is
// the persisted representation of CreationDate.
func EpochDay(t time.Time) int64 {
	return Date(t).Unix() / 86400
}

// FromEpochDay is the inverse of EpochDay.
func FromEpochDay(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}

// StringPtr returns nil for an empty (or blank) string, &s otherwise.
func StringPtr(s string) *string {
	if isBlank(s) {
		return nil
	}
	return &s
}

// Float64Ptr returns &f.
func Float64Ptr(f float64) *float64 {
	return &f
}
