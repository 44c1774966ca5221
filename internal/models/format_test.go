package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormattedLocation(t *testing.T) {
	tests := []struct {
		name  string
		entry DiaryEntry
		want  string
	}{
		{
			name:  "nothing",
			entry: DiaryEntry{},
			want:  NoLocation,
		},
		{
			name:  "coordinates only",
			entry: DiaryEntry{Latitude: Float64Ptr(52.2), Longitude: Float64Ptr(21.0)},
			want:  NoLocation,
		},
		{
			name:  "blank strings count as absent",
			entry: DiaryEntry{City: raw("  "), Country: raw("")},
			want:  NoLocation,
		},
		{
			name:  "city and country",
			entry: DiaryEntry{City: raw("Warsaw"), Country: raw("Poland")},
			want:  "Warsaw • Poland",
		},
		{
			name: "full address",
			entry: DiaryEntry{
				Street: raw("Marszałkowska"), StreetNumber: raw("14"),
				City: raw("Warsaw"), Country: raw("Poland"),
			},
			want: "Marszałkowska 14,\nWarsaw • Poland",
		},
		{
			name:  "street without number",
			entry: DiaryEntry{Street: raw("Rogers Rd"), City: raw("Toronto"), Country: raw("Canada")},
			want:  "Rogers Rd,\nToronto • Canada",
		},
		{
			name:  "street only",
			entry: DiaryEntry{Street: raw("Rogers Rd"), StreetNumber: raw("101")},
			want:  "Rogers Rd 101",
		},
		{
			name:  "country only",
			entry: DiaryEntry{Country: raw("Canada")},
			want:  "Canada",
		},
		{
			name:  "street and city",
			entry: DiaryEntry{Street: raw("Rogers Rd"), City: raw("Toronto")},
			want:  "Rogers Rd,\nToronto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.FormattedLocation())
		})
	}
}

func TestFormattedDate(t *testing.T) {
	e := DiaryEntry{CreationDate: NewDate(2025, 5, 21)}
	assert.Equal(t, "Wed, 21 May 2025", e.FormattedDate())
}

// raw keeps blank strings, unlike StringPtr.
func raw(s string) *string { return &s }
