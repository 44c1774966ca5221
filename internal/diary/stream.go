package diary

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/models"
)

// Stream is a live query result. Updates delivers the current value first
// and then a fresh value after every change; a consumer that falls behind
// only sees the latest value. The channel is closed once the stream stops.
type Stream[T any] struct {
	out    chan T
	cancel context.CancelFunc
	done   chan struct{}
}

// Updates returns the channel of query results.
func (s *Stream[T]) Updates() <-chan T {
	return s.out
}

// Close stops the stream and waits until its channel is closed.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}

func watch[T any](ctx context.Context, store *Store, query func(ctx context.Context) (T, error)) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	id, dirty := store.subscribe()

	s := &Stream[T]{out: make(chan T, 1), cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer close(s.out)
		defer store.unsubscribe(id)

		for {
			v, err := query(ctx)
			switch {
			case err == nil:
				s.publish(v)
			case ctx.Err() != nil:
				return
			default:
				store.log.Error(ctx, "diary stream query failed", "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-dirty:
			}
		}
	}()

	return s
}

// publish replaces any undelivered value with v. Only the stream goroutine
// sends, so the second send cannot block.
func (s *Stream[T]) publish(v T) {
	select {
	case s.out <- v:
		return
	default:
	}
	select {
	case <-s.out:
	default:
	}
	s.out <- v
}

// WatchByID follows a single entry; nil is emitted while it does not exist.
func (s *Store) WatchByID(ctx context.Context, id int64) *Stream[*models.DiaryEntry] {
	return watch(ctx, s, func(ctx context.Context) (*models.DiaryEntry, error) {
		e, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return e, err
	})
}

// WatchAll follows all entries, newest first.
func (s *Store) WatchAll(ctx context.Context) *Stream[[]models.DiaryEntry] {
	return watch(ctx, s, s.repo.GetAll)
}

// WatchRecent follows the n newest entries (entries.DefaultRecentLimit when n <= 0).
func (s *Store) WatchRecent(ctx context.Context, n int) *Stream[[]models.DiaryEntry] {
	return watch(ctx, s, func(ctx context.Context) ([]models.DiaryEntry, error) {
		return s.repo.GetRecent(ctx, n)
	})
}

// WatchDateRange follows entries dated within [start, end], newest first.
func (s *Store) WatchDateRange(ctx context.Context, start, end time.Time) *Stream[[]models.DiaryEntry] {
	start, end = models.Date(start), models.Date(end)
	return watch(ctx, s, func(ctx context.Context) ([]models.DiaryEntry, error) {
		return s.repo.GetByDateRange(ctx, start, end)
	})
}
