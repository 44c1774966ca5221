package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/camera"
	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/location"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/dmitrijs2005/gooutside/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

var today = time.Date(2025, 5, 21, 17, 30, 0, 0, time.UTC)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 2))))
	return buf.Bytes()
}

type fakeDevice struct {
	mu       sync.Mutex
	frames   []*camera.Frame
	settings []camera.Settings
	calls    atomic.Int32
	// captureFn overrides the default of returning a fresh PNG frame.
	captureFn func(ctx context.Context) (*camera.Frame, error)
	data      []byte
}

func (d *fakeDevice) Capture(ctx context.Context, s camera.Settings) (*camera.Frame, error) {
	d.calls.Add(1)
	var (
		f   *camera.Frame
		err error
	)
	if d.captureFn != nil {
		f, err = d.captureFn(ctx)
	} else {
		f = camera.NewFrame(d.data, 90, s.Facing)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = append(d.settings, s)
	if f != nil {
		d.frames = append(d.frames, f)
	}
	return f, err
}

func (d *fakeDevice) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.frames {
		if !f.Closed() {
			return false
		}
	}
	return true
}

type fakeClassifier struct {
	outdoor bool
	err     error
	// gate, when set, blocks Classify until it is closed or ctx is done.
	gate  chan struct{}
	calls atomic.Int32
}

func (c *fakeClassifier) Classify(ctx context.Context, f *camera.Frame) (bool, error) {
	c.calls.Add(1)
	if _, err := camera.Decode(f); err != nil {
		return false, err
	}
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return c.outdoor, c.err
}

type fakeLocator struct {
	loc     *location.Location
	details *location.Details
	err     error
}

func (l *fakeLocator) CurrentLocation(ctx context.Context, highAccuracy bool) (*location.Location, error) {
	return l.loc, l.err
}

func (l *fakeLocator) ReverseGeocode(ctx context.Context, loc *location.Location) *location.Details {
	return l.details
}

type fakeMedia struct {
	// gate, when set, blocks Save until closed.
	gate chan struct{}

	mu      sync.Mutex
	saveErr error
	saved   []string
	deleted []string
}

func (m *fakeMedia) Save(ctx context.Context, img image.Image) (string, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if img == nil {
		return "", errors.New("nil image")
	}
	if m.saveErr != nil {
		return "", m.saveErr
	}
	ref := "photos/IMG_" + string(rune('a'+len(m.saved))) + ".jpg"
	m.saved = append(m.saved, ref)
	return ref, nil
}

func (m *fakeMedia) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ref)
	return nil
}

type fakeDiary struct {
	mu      sync.Mutex
	entries []models.DiaryEntry
	err     error
}

func (d *fakeDiary) Insert(ctx context.Context, e models.DiaryEntry) (models.DiaryEntry, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return e, false, d.err
	}
	e.ID = int64(len(d.entries) + 1)
	d.entries = append(d.entries, e)
	return e, true, nil
}

type fixture struct {
	device     *fakeDevice
	classifier *fakeClassifier
	locator    *fakeLocator
	media      *fakeMedia
	diary      *fakeDiary
	session    *Session
}

func newFixture(t *testing.T, outdoor bool) *fixture {
	t.Helper()
	f := &fixture{
		device:     &fakeDevice{data: pngBytes(t)},
		classifier: &fakeClassifier{outdoor: outdoor},
		locator: &fakeLocator{
			loc: &location.Location{Latitude: 52.2297, Longitude: 21.0122},
			details: &location.Details{
				Street:       models.StringPtr("Marszałkowska"),
				StreetNumber: models.StringPtr("14"),
				City:         models.StringPtr("Warsaw"),
				Country:      models.StringPtr("Poland"),
			},
		},
		media: &fakeMedia{},
		diary: &fakeDiary{},
	}
	f.session = NewSession(f.device, f.classifier, f.locator, f.media, f.diary, logging.Nop(), Options{
		Now: func() time.Time { return today },
	})
	t.Cleanup(func() { _ = f.session.Close() })
	return f
}

func waitPhase(t *testing.T, s *Session, match func(Phase) bool) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		st = s.State()
		return match(st.Phase)
	}, waitFor, time.Millisecond, "last phase: %v", s.State().Phase)
	return st
}

func isDecided(o Outcome) func(Phase) bool {
	return func(p Phase) bool {
		d, ok := p.(Decided)
		return ok && d.Outcome == o
	}
}

func isAnalyzing(p Phase) bool {
	_, ok := p.(Analyzing)
	return ok
}

func TestCapture_PassedThenConfirm(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.True(t, f.session.Capture(ctx))
	st := waitPhase(t, f.session, isDecided(Passed))

	preview := PreviewOf(st.Phase)
	require.NotNil(t, preview)
	assert.Equal(t, image.Rect(0, 0, 2, 4), preview.Bounds(), "rotation applied to preview")
	assert.True(t, f.device.allClosed(), "frame released after classification")

	e, err := f.session.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2025, 5, 21), e.CreationDate)
	assert.Equal(t, "photos/IMG_a.jpg", e.ImagePath)
	assert.Equal(t, "Warsaw", *e.City)
	assert.Equal(t, "14", *e.StreetNumber)
	assert.InDelta(t, 52.2297, *e.Latitude, 1e-9)

	st = f.session.State()
	assert.True(t, IsIdle(st.Phase))
	assert.NoError(t, st.Err)
	require.NotNil(t, st.Saved)
	assert.Equal(t, e, *st.Saved)
	assert.Len(t, f.diary.entries, 1)
}

func TestConfirm_WithoutLocation(t *testing.T) {
	tests := []struct {
		name    string
		locator *fakeLocator
	}{
		{"no fix", &fakeLocator{}},
		{"locator error", &fakeLocator{err: context.DeadlineExceeded}},
		{"fix without address", &fakeLocator{loc: &location.Location{Latitude: 1, Longitude: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.session.locator = tt.locator

			require.True(t, f.session.Capture(context.Background()))
			waitPhase(t, f.session, isDecided(Passed))

			e, err := f.session.Confirm(context.Background())
			require.NoError(t, err)
			assert.Nil(t, e.Street)
			assert.Nil(t, e.City)
			assert.Equal(t, tt.locator.loc != nil, e.Latitude != nil)
			assert.True(t, IsIdle(f.session.State().Phase))
		})
	}
}

func TestCapture_FailedThenRetake(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.True(t, f.session.Capture(ctx))
	waitPhase(t, f.session, isDecided(Failed))

	_, err := f.session.Confirm(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
	assert.ErrorIs(t, f.session.Discard(), common.ErrInvalidTransition)

	require.NoError(t, f.session.Retake())
	assert.True(t, IsIdle(f.session.State().Phase))
	assert.Empty(t, f.media.saved)

	require.True(t, f.session.Capture(ctx), "ready for a new capture")
	waitPhase(t, f.session, isDecided(Failed))
}

func TestDiscard_ReturnsToIdleWithoutSaving(t *testing.T) {
	f := newFixture(t, true)

	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isDecided(Passed))

	assert.ErrorIs(t, f.session.Retake(), common.ErrInvalidTransition)
	require.NoError(t, f.session.Discard())

	st := f.session.State()
	assert.True(t, IsIdle(st.Phase))
	assert.Nil(t, PreviewOf(st.Phase))
	assert.Empty(t, f.media.saved)
	assert.Empty(t, f.diary.entries)
}

func TestAbandon(t *testing.T) {
	for _, outdoor := range []bool{true, false} {
		f := newFixture(t, outdoor)
		require.NoError(t, f.session.Abandon(), "idle session")

		require.True(t, f.session.Capture(context.Background()))
		waitPhase(t, f.session, func(p Phase) bool { _, ok := p.(Decided); return ok })

		require.NoError(t, f.session.Abandon())
		assert.True(t, IsIdle(f.session.State().Phase))
	}
}

func TestAbandon_ConcurrentCallsBothSucceed(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < 50; i++ {
		require.True(t, f.session.Capture(context.Background()))
		waitPhase(t, f.session, isDecided(Failed))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[j] = f.session.Abandon()
			}()
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		require.True(t, IsIdle(f.session.State().Phase))
	}
}

func TestAbandon_RejectedWhileAnalyzing(t *testing.T) {
	f := newFixture(t, true)
	f.classifier.gate = make(chan struct{})

	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isAnalyzing)

	assert.ErrorIs(t, f.session.Abandon(), common.ErrInvalidTransition)
	close(f.classifier.gate)
	waitPhase(t, f.session, isDecided(Passed))
}

func TestCapture_IgnoredWhileBusy(t *testing.T) {
	f := newFixture(t, true)
	f.classifier.gate = make(chan struct{})
	ctx := context.Background()

	require.True(t, f.session.Capture(ctx))
	st := waitPhase(t, f.session, isAnalyzing)

	for i := 0; i < 5; i++ {
		assert.False(t, f.session.Capture(ctx))
	}
	assert.Equal(t, int32(1), f.device.calls.Load())
	assert.Same(t, PreviewOf(st.Phase), PreviewOf(f.session.State().Phase))

	close(f.classifier.gate)
	waitPhase(t, f.session, isDecided(Passed))
	assert.False(t, f.session.Capture(ctx), "decided session needs a choice first")
	assert.Equal(t, int32(1), f.classifier.calls.Load())
}

func TestCapture_IgnoredWhileCapturing(t *testing.T) {
	f := newFixture(t, true)
	release := make(chan struct{})
	data := f.device.data
	f.device.captureFn = func(ctx context.Context) (*camera.Frame, error) {
		<-release
		return camera.NewFrame(data, 0, camera.FacingBack), nil
	}

	require.True(t, f.session.Capture(context.Background()))
	assert.Equal(t, "capturing", f.session.State().Phase.String())
	assert.False(t, f.session.Capture(context.Background()))

	close(release)
	waitPhase(t, f.session, isDecided(Passed))
	assert.Equal(t, int32(1), f.device.calls.Load())
}

func TestCapture_ErrorsReturnToIdle(t *testing.T) {
	deviceErr := errors.New("camera disconnected")
	inferenceErr := errors.New("model crashed")

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		wantErr error
	}{
		{
			name: "device error",
			setup: func(t *testing.T, f *fixture) {
				f.device.captureFn = func(ctx context.Context) (*camera.Frame, error) { return nil, deviceErr }
			},
			wantErr: deviceErr,
		},
		{
			name: "absent frame",
			setup: func(t *testing.T, f *fixture) {
				f.device.captureFn = func(ctx context.Context) (*camera.Frame, error) { return nil, nil }
			},
			wantErr: common.ErrNoFrame,
		},
		{
			name:    "undecodable frame",
			setup:   func(t *testing.T, f *fixture) { f.device.data = []byte("not an image") },
			wantErr: common.ErrUndecodableFrame,
		},
		{
			name: "inference error",
			setup: func(t *testing.T, f *fixture) {
				f.classifier.err = errors.Join(common.ErrInference, inferenceErr)
			},
			wantErr: common.ErrInference,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			tt.setup(t, f)

			require.True(t, f.session.Capture(context.Background()))
			st := waitPhase(t, f.session, func(p Phase) bool { return IsIdle(p) && f.session.State().Err != nil })

			assert.ErrorIs(t, st.Err, tt.wantErr)
			assert.True(t, f.device.allClosed(), "frame released on error path")
			assert.Empty(t, f.media.saved)

			f.device.captureFn = nil
			f.device.data = pngBytes(t)
			f.classifier.err = nil
			require.True(t, f.session.Capture(context.Background()))
			assert.NoError(t, f.session.State().Err, "next capture clears the error")
		})
	}
}

func TestConfirm_MediaFailure(t *testing.T) {
	f := newFixture(t, true)
	f.media.saveErr = errors.New("disk full")

	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isDecided(Passed))

	_, err := f.session.Confirm(context.Background())
	require.ErrorIs(t, err, common.ErrMediaSave)

	st := f.session.State()
	assert.True(t, IsIdle(st.Phase))
	assert.ErrorIs(t, st.Err, common.ErrMediaSave)
	assert.Nil(t, st.Saved)
	assert.Empty(t, f.diary.entries)
}

func TestConfirm_StoreFailureRemovesPhoto(t *testing.T) {
	f := newFixture(t, true)
	f.diary.err = errors.New("database is locked")

	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isDecided(Passed))

	_, err := f.session.Confirm(context.Background())
	require.Error(t, err)
	assert.Equal(t, f.media.saved, f.media.deleted)
	assert.True(t, IsIdle(f.session.State().Phase))
}

func TestToggles_ApplyToNextCapture(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, camera.FlashAuto, f.session.ToggleFlash())
	assert.Equal(t, camera.FlashOn, f.session.ToggleFlash())
	assert.Equal(t, camera.FacingFront, f.session.ToggleFacing())

	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isDecided(Passed))

	f.device.mu.Lock()
	defer f.device.mu.Unlock()
	require.Len(t, f.device.settings, 1)
	assert.Equal(t, camera.Settings{Flash: camera.FlashOn, Facing: camera.FacingFront}, f.device.settings[0])
	assert.Equal(t, camera.FlashOff, camera.FlashOn.Next())
}

func TestSubscribe_ObservesCycle(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := f.session.Subscribe(ctx)
	first := <-states
	assert.True(t, IsIdle(first.Phase))

	require.True(t, f.session.Capture(ctx))

	deadline := time.After(waitFor)
	for {
		select {
		case st := <-states:
			if isDecided(Passed)(st.Phase) {
				cancel()
				require.Eventually(t, func() bool {
					_, ok := <-states
					return !ok
				}, waitFor, time.Millisecond)
				return
			}
		case <-deadline:
			t.Fatal("decided state never observed")
		}
	}
}

func TestAnalysisDelay_PacesDecision(t *testing.T) {
	f := newFixture(t, true)
	f.session.opts.AnalysisDelay = 50 * time.Millisecond

	start := time.Now()
	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isAnalyzing)
	waitPhase(t, f.session, isDecided(Passed))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestClose_WaitsForInFlightCycle(t *testing.T) {
	f := newFixture(t, true)
	f.classifier.gate = make(chan struct{})

	require.True(t, f.session.Capture(context.Background()))
	waitPhase(t, f.session, isAnalyzing)

	done := make(chan struct{})
	go func() {
		_ = f.session.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("close did not return")
	}
	assert.True(t, f.device.allClosed())
	assert.True(t, IsIdle(f.session.State().Phase))
	assert.False(t, f.session.Capture(context.Background()), "closed session refuses work")
}

func TestConfirm_RejectedAfterClose(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.True(t, f.session.Capture(ctx))
	waitPhase(t, f.session, isDecided(Passed))
	require.NoError(t, f.session.Close())

	_, err := f.session.Confirm(ctx)
	require.ErrorIs(t, err, common.ErrInvalidTransition)
	require.ErrorIs(t, f.session.Abandon(), common.ErrInvalidTransition)
	assert.Empty(t, f.media.saved)
	assert.Empty(t, f.diary.entries)
}

func TestClose_WaitsForConfirm(t *testing.T) {
	f := newFixture(t, true)
	f.media.gate = make(chan struct{})
	ctx := context.Background()

	require.True(t, f.session.Capture(ctx))
	waitPhase(t, f.session, isDecided(Passed))

	confirmed := make(chan error, 1)
	go func() {
		_, err := f.session.Confirm(ctx)
		confirmed <- err
	}()
	waitPhase(t, f.session, func(p Phase) bool {
		_, ok := p.(Persisting)
		return ok
	})

	closed := make(chan struct{})
	go func() {
		_ = f.session.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("close returned while the entry was being saved")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.media.gate)
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("close did not return")
	}
	require.NoError(t, <-confirmed)
	f.diary.mu.Lock()
	defer f.diary.mu.Unlock()
	assert.Len(t, f.diary.entries, 1)
}
