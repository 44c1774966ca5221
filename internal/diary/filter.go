package diary

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/models"
)

// RangeFilter selects the period shown on the diary screen.
type RangeFilter int

const (
	FilterWeek RangeFilter = iota
	FilterMonth
	FilterCustom
)

func (f RangeFilter) String() string {
	switch f {
	case FilterWeek:
		return "Week"
	case FilterMonth:
		return "Month"
	case FilterCustom:
		return "Custom"
	default:
		return fmt.Sprintf("RangeFilter(%d)", int(f))
	}
}

// ParseRangeFilter accepts "week", "month" or "custom" in any case.
func ParseRangeFilter(s string) (RangeFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week":
		return FilterWeek, nil
	case "month":
		return FilterMonth, nil
	case "custom":
		return FilterCustom, nil
	}
	return 0, fmt.Errorf("unknown range filter %q", s)
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalises both bounds to dates and orders them.
func NewDateRange(a, b time.Time) DateRange {
	a, b = models.Date(a), models.Date(b)
	if b.Before(a) {
		a, b = b, a
	}
	return DateRange{Start: a, End: b}
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + " .. " + r.End.Format(time.DateOnly)
}

// WeekOf returns the span starting on Monday of today's week. The end bound
// is the following Monday, so entries dated that Monday are included.
func WeekOf(today time.Time) DateRange {
	d := models.Date(today)
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return DateRange{Start: monday, End: monday.AddDate(0, 0, 7)}
}

// MonthOf returns the first through the last day of today's month.
func MonthOf(today time.Time) DateRange {
	d := models.Date(today)
	first := d.AddDate(0, 0, 1-d.Day())
	return DateRange{Start: first, End: first.AddDate(0, 1, -1)}
}

// Range resolves the filter for today. custom is only used by FilterCustom.
func (f RangeFilter) Range(today time.Time, custom DateRange) DateRange {
	switch f {
	case FilterMonth:
		return MonthOf(today)
	case FilterCustom:
		return NewDateRange(custom.Start, custom.End)
	default:
		return WeekOf(today)
	}
}
