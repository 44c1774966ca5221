package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/diary"
	"github.com/dmitrijs2005/gooutside/internal/models"
	"github.com/dmitrijs2005/gooutside/internal/repositories/entries"
)

// queryTimeout bounds the wait for the first result of a diary stream.
const queryTimeout = 5 * time.Second

var errStreamClosed = errors.New("diary stream closed")

// first takes the current value of s and closes it.
func first[T any](ctx context.Context, s *diary.Stream[T]) (T, error) {
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var zero T
	select {
	case v, ok := <-s.Updates():
		if !ok {
			return zero, errStreamClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (a *App) printEntries(ctx context.Context, s *diary.Stream[[]models.DiaryEntry], title string) error {
	es, err := first(ctx, s)
	if err != nil {
		return a.fail(ctx, err)
	}
	fmt.Fprintln(a.out, title)
	if len(es) == 0 {
		fmt.Fprintln(a.out, "  No entries.")
		return nil
	}
	for _, e := range es {
		fmt.Fprintf(a.out, "  #%-4d %s  %s\n", e.ID, e.FormattedDate(), oneLine(e.FormattedLocation()))
	}
	return nil
}

// Recent lists the latest entries.
func (a *App) Recent(ctx context.Context) error {
	return a.printEntries(ctx, a.diary.WatchRecent(ctx, entries.DefaultRecentLimit), "Recent entries:")
}

// List lists every entry, newest first.
func (a *App) List(ctx context.Context) error {
	return a.printEntries(ctx, a.diary.WatchAll(ctx), "All entries:")
}

func (a *App) Week(ctx context.Context) error {
	return a.listRange(ctx, diary.FilterWeek, diary.DateRange{})
}

func (a *App) Month(ctx context.Context) error {
	return a.listRange(ctx, diary.FilterMonth, diary.DateRange{})
}

// Range lists the entries between two dates given as YYYY-MM-DD, in any
// order.
func (a *App) Range(ctx context.Context, start, end string) error {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return a.fail(ctx, fmt.Errorf("invalid date %q, want YYYY-MM-DD", start))
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return a.fail(ctx, fmt.Errorf("invalid date %q, want YYYY-MM-DD", end))
	}
	return a.listRange(ctx, diary.FilterCustom, diary.NewDateRange(s, e))
}

func (a *App) listRange(ctx context.Context, f diary.RangeFilter, custom diary.DateRange) error {
	r := f.Range(a.now(), custom)
	title := fmt.Sprintf("Entries %s (%s):", r, f)
	return a.printEntries(ctx, a.diary.WatchDateRange(ctx, r.Start, r.End), title)
}

func (a *App) entry(ctx context.Context, id string) (*models.DiaryEntry, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id %q", id)
	}
	e, err := first(ctx, a.diary.WatchByID(ctx, n))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("entry %d: %w", n, common.ErrorNotFound)
	}
	return e, nil
}

func (a *App) Show(ctx context.Context, id string) error {
	e, err := a.entry(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}

	fmt.Fprintf(a.out, "Entry #%d\n", e.ID)
	fmt.Fprintf(a.out, "Date: %s\n", e.FormattedDate())
	fmt.Fprintf(a.out, "Photo: %s\n", e.ImagePath)
	fmt.Fprintf(a.out, "Location: %s\n", oneLine(e.FormattedLocation()))
	if e.Latitude != nil && e.Longitude != nil {
		fmt.Fprintf(a.out, "Coordinates: %.6f, %.6f\n", *e.Latitude, *e.Longitude)
	}
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	e, err := a.entry(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	if err := a.diary.Delete(ctx, *e); err != nil {
		return a.fail(ctx, err)
	}
	fmt.Fprintf(a.out, "Deleted entry #%d.\n", e.ID)
	return nil
}

// Export writes the whole diary to path as a JSON array.
func (a *App) Export(ctx context.Context, path string) error {
	es, err := a.diary.Export(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	if es == nil {
		es = []models.DiaryEntry{}
	}
	data, err := json.MarshalIndent(es, "", "  ")
	if err != nil {
		return a.fail(ctx, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return a.fail(ctx, err)
	}
	fmt.Fprintf(a.out, "Exported %d entries to %s.\n", len(es), path)
	return nil
}

// Import adds the entries of a JSON export. Entries whose id already exists
// are skipped; the import is all or nothing otherwise.
func (a *App) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return a.fail(ctx, err)
	}
	var es []models.DiaryEntry
	if err := json.Unmarshal(data, &es); err != nil {
		return a.fail(ctx, fmt.Errorf("parse %s: %w", path, err))
	}
	for i, e := range es {
		if e.CreationDate.IsZero() {
			return a.fail(ctx, fmt.Errorf("parse %s: entry %d has no creation date", path, i))
		}
	}

	n, err := a.diary.InsertAll(ctx, es)
	if err != nil {
		return a.fail(ctx, err)
	}
	fmt.Fprintf(a.out, "Imported %d of %d entries.\n", n, len(es))
	return nil
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
