package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// NoLocation is shown for entries without any textual location.
	NoLocation = "No location"

	// LocationSeparator joins city and country.
	LocationSeparator = " • "

	dateLayout = "Mon, 02 Jan 2006"
)

// FormattedDate renders the creation date as e.g. "Wed, 21 May 2025".
func (e DiaryEntry) FormattedDate() string {
	s := e.CreationDate.Format(dateLayout)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToTitle(r)) + s[size:]
}

// FormattedLocation renders the textual location of the entry:
//
//	street+number+city+country  "Marszałkowska 14,\nWarsaw • Poland"
//	city+country                "Warsaw • Poland"
//	nothing                     NoLocation
//
// Blank fields count as absent. Coordinates are never rendered here.
func (e DiaryEntry) FormattedLocation() string {
	city := value(e.City)
	country := value(e.Country)

	var street string
	if s := value(e.Street); s != "" {
		street = s
		if n := value(e.StreetNumber); n != "" {
			street += " " + n
		}
		if city != "" || country != "" {
			street += ",\n"
		}
	}

	if street == "" && city == "" && country == "" {
		return NoLocation
	}
	if city != "" && country != "" {
		return street + city + LocationSeparator + country
	}
	return street + city + country
}

func value(p *string) string {
	if p == nil || isBlank(*p) {
		return ""
	}
	return strings.TrimSpace(*p)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
