package entries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/models"
)

// DefaultRecentLimit is the number of entries returned by GetRecent when the
// caller passes a non-positive limit.
const DefaultRecentLimit = 5

// Repository describes persistence operations for diary entries.
type Repository interface {
	// Insert stores e. When e.ID is zero a new id is generated and written
	// back into e. A duplicate id leaves the store untouched and returns
	// inserted=false without an error.
	Insert(ctx context.Context, e *models.DiaryEntry) (inserted bool, err error)

	// Update replaces the record with e.ID. It reports whether a row changed.
	Update(ctx context.Context, e models.DiaryEntry) (bool, error)

	// Delete removes the record with e.ID. It reports whether a row was removed.
	Delete(ctx context.Context, e models.DiaryEntry) (bool, error)

	// GetByID returns the entry or an error wrapping common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.DiaryEntry, error)

	// GetAll returns every entry, newest first.
	GetAll(ctx context.Context) ([]models.DiaryEntry, error)

	// GetRecent returns up to limit newest entries.
	GetRecent(ctx context.Context, limit int) ([]models.DiaryEntry, error)

	// GetByDateRange returns entries with start <= date <= end, newest first.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]models.DiaryEntry, error)
}
