// Package diary is the single source of truth for diary entries. It wraps the
// SQL repository with change notification so that every read is a live
// subscription: a Stream emits the current result immediately and re-emits
// the full result after each mutation that touched the data.
package diary

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/dbx"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/dmitrijs2005/gooutside/internal/models"
	"github.com/dmitrijs2005/gooutside/internal/repositories/entries"
)

// Store exposes diary mutations and reactive reads.
type Store struct {
	repo  entries.Repository
	inTx  func(ctx context.Context, fn func(repo entries.Repository) error) error
	log   logging.Logger
	mu    sync.Mutex
	subs  map[uint64]chan struct{}
	subID uint64
}

// NewStore builds a Store over an arbitrary repository. Batch operations run
// sequentially without atomicity; use NewSQLStore for transactional imports.
func NewStore(repo entries.Repository, log logging.Logger) *Store {
	s := &Store{repo: repo, log: log, subs: make(map[uint64]chan struct{})}
	s.inTx = func(ctx context.Context, fn func(entries.Repository) error) error {
		return fn(s.repo)
	}
	return s
}

// NewSQLStore builds a Store backed by the SQLite repository on db.
func NewSQLStore(db *sql.DB, log logging.Logger) *Store {
	s := NewStore(entries.NewSQLiteRepository(db), log)
	s.inTx = func(ctx context.Context, fn func(entries.Repository) error) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(entries.NewSQLiteRepository(tx))
		})
	}
	return s
}

// Insert stores e and returns it with its generated id. A duplicate id is
// ignored: inserted is false and the stored record is left unchanged.
func (s *Store) Insert(ctx context.Context, e models.DiaryEntry) (models.DiaryEntry, bool, error) {
	e.CreationDate = models.Date(e.CreationDate)

	inserted, err := s.repo.Insert(ctx, &e)
	if err != nil {
		return e, false, fmt.Errorf("diary insert: %w", err)
	}
	if !inserted {
		s.log.Warn(ctx, "diary entry id already exists, insert ignored", "id", e.ID)
		return e, false, nil
	}

	s.log.Info(ctx, "diary entry inserted", "id", e.ID, "date", e.CreationDate.Format(time.DateOnly))
	s.notify()
	return e, true, nil
}

// Update replaces the full record with e.ID; a missing id is a silent no-op.
func (s *Store) Update(ctx context.Context, e models.DiaryEntry) error {
	e.CreationDate = models.Date(e.CreationDate)

	changed, err := s.repo.Update(ctx, e)
	if err != nil {
		return fmt.Errorf("diary update: %w", err)
	}
	if changed {
		s.notify()
	}
	return nil
}

// Delete removes the record with e.ID; a missing id is a silent no-op.
func (s *Store) Delete(ctx context.Context, e models.DiaryEntry) error {
	removed, err := s.repo.Delete(ctx, e)
	if err != nil {
		return fmt.Errorf("diary delete: %w", err)
	}
	if removed {
		s.log.Info(ctx, "diary entry deleted", "id", e.ID)
		s.notify()
	}
	return nil
}

// InsertAll inserts es in one unit of work and returns how many were new.
// Entries whose id already exists are skipped like in Insert.
func (s *Store) InsertAll(ctx context.Context, es []models.DiaryEntry) (int, error) {
	var n int
	err := s.inTx(ctx, func(repo entries.Repository) error {
		n = 0
		for i := range es {
			e := es[i]
			e.CreationDate = models.Date(e.CreationDate)
			ok, err := repo.Insert(ctx, &e)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("diary import: %w", err)
	}
	if n > 0 {
		s.notify()
	}
	return n, nil
}

// Export returns all entries once, newest first, for backups;
// screens should subscribe with WatchAll instead.
func (s *Store) Export(ctx context.Context) ([]models.DiaryEntry, error) {
	return s.repo.GetAll(ctx)
}

func (s *Store) subscribe() (uint64, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subID++
	ch := make(chan struct{}, 1)
	s.subs[s.subID] = ch
	return s.subID, ch
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// notify marks every subscription dirty. Pending marks coalesce.
func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports the number of live streams.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
