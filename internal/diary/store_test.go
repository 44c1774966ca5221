package diary

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/database"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/dmitrijs2005/gooutside/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := database.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, logging.Nop()), db
}

func entryOn(y int, m time.Month, d int, img string) models.DiaryEntry {
	return models.DiaryEntry{CreationDate: models.NewDate(y, m, d), ImagePath: img}
}

func next[T any](t *testing.T, s *Stream[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.Updates():
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for stream value")
	}
	var zero T
	return zero
}

func images(es []models.DiaryEntry) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ImagePath)
	}
	return out
}

func TestInsert_AssignsIDAndNormalisesDate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	e := models.DiaryEntry{
		CreationDate: time.Date(2025, 5, 21, 18, 45, 0, 0, time.UTC),
		ImagePath:    "a.jpg",
	}
	got, ok, err := s.Insert(ctx, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, got.ID)
	assert.Equal(t, models.NewDate(2025, 5, 21), got.CreationDate)
}

func TestInsert_DuplicateIDReportsNotInserted(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, _, err := s.Insert(ctx, entryOn(2025, 1, 1, "a.jpg"))
	require.NoError(t, err)

	dup := entryOn(2024, 1, 1, "b.jpg")
	dup.ID = first.ID
	_, ok, err := s.Insert(ctx, dup)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, images(all))
}

func TestWatchAll_EmitsCurrentThenUpdates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st := s.WatchAll(ctx)
	defer st.Close()

	assert.Empty(t, next(t, st))

	_, _, err := s.Insert(ctx, entryOn(2024, 8, 21, "old.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"old.jpg"}, images(next(t, st)))

	_, _, err = s.Insert(ctx, entryOn(2025, 5, 21, "new.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"new.jpg", "old.jpg"}, images(next(t, st)))
}

func TestWatchAll_SlowConsumerSeesLatest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st := s.WatchAll(ctx)
	defer st.Close()
	require.Empty(t, next(t, st))

	for i := 1; i <= 5; i++ {
		_, _, err := s.Insert(ctx, entryOn(2025, 1, i, "x.jpg"))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		select {
		case v := <-st.Updates():
			return len(v) == 5
		default:
			return false
		}
	}, waitFor, 10*time.Millisecond)
}

func TestWatchByID_FollowsLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	e, _, err := s.Insert(ctx, entryOn(2025, 5, 21, "a.jpg"))
	require.NoError(t, err)

	st := s.WatchByID(ctx, e.ID)
	defer st.Close()

	got := next(t, st)
	require.NotNil(t, got)
	assert.Equal(t, e, *got)

	e.City = models.StringPtr("Warsaw")
	require.NoError(t, s.Update(ctx, e))
	got = next(t, st)
	require.NotNil(t, got)
	assert.Equal(t, "Warsaw", *got.City)

	require.NoError(t, s.Delete(ctx, e))
	assert.Nil(t, next(t, st))
}

func TestWatchByID_UnknownEmitsNil(t *testing.T) {
	s, _ := newTestStore(t)

	st := s.WatchByID(context.Background(), 42)
	defer st.Close()
	assert.Nil(t, next(t, st))
}

func TestWatchRecent_LimitsResult(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for d := 1; d <= 6; d++ {
		_, _, err := s.Insert(ctx, entryOn(2025, 3, d, time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)))
		require.NoError(t, err)
	}

	st := s.WatchRecent(ctx, 0)
	defer st.Close()
	assert.Equal(t, []string{"2025-03-06", "2025-03-05", "2025-03-04", "2025-03-03", "2025-03-02"}, images(next(t, st)))
}

func TestWatchDateRange_OnlyMatchingChangesShow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st := s.WatchDateRange(ctx, models.NewDate(2025, 5, 1), models.NewDate(2025, 5, 31))
	defer st.Close()
	assert.Empty(t, next(t, st))

	_, _, err := s.Insert(ctx, entryOn(2025, 5, 31, "in.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"in.jpg"}, images(next(t, st)))

	_, _, err = s.Insert(ctx, entryOn(2025, 6, 1, "out.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"in.jpg"}, images(next(t, st)))
}

func TestStream_CloseUnsubscribes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	a := s.WatchAll(ctx)
	b := s.WatchAll(context.Background())
	next(t, a)
	next(t, b)
	assert.Equal(t, 2, s.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, waitFor, 5*time.Millisecond)

	b.Close()
	assert.Equal(t, 0, s.Subscribers())

	_, ok := <-b.Updates()
	assert.False(t, ok)
}

func TestInsertAll_AtomicAndCountsNew(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	existing, _, err := s.Insert(ctx, entryOn(2025, 1, 1, "a.jpg"))
	require.NoError(t, err)

	dup := entryOn(2020, 1, 1, "dup.jpg")
	dup.ID = existing.ID

	n, err := s.InsertAll(ctx, []models.DiaryEntry{
		entryOn(2025, 1, 2, "b.jpg"),
		dup,
		entryOn(2025, 1, 3, "c.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.jpg", "b.jpg", "a.jpg"}, images(all))
}

func TestInsertAll_RollsBackOnError(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON diary_entries
		WHEN NEW.image_path = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	_, err = s.InsertAll(ctx, []models.DiaryEntry{
		entryOn(2025, 1, 2, "ok.jpg"),
		entryOn(2025, 1, 3, "bad"),
	})
	require.Error(t, err)

	all, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
