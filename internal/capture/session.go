// Package capture runs the photo session: take a frame, check that it shows
// an outdoor scene and, once the user confirms, store it as a diary entry.
//
// The session is a single state machine observed through State snapshots:
//
//	Idle -> Capturing -> Analyzing -> Decided(Passed|Failed) -> Idle
//	                                  Decided(Passed) -> Persisting -> Idle
//
// Every failure returns the session to Idle with State.Err set.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/camera"
	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/location"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/dmitrijs2005/gooutside/internal/media"
	"github.com/dmitrijs2005/gooutside/internal/models"
)

// DefaultAnalysisDelay paces the switch from Analyzing to Decided.
const DefaultAnalysisDelay = 1500 * time.Millisecond

// Classifier decides whether a frame shows an outdoor scene.
type Classifier interface {
	Classify(ctx context.Context, f *camera.Frame) (bool, error)
}

// Locator resolves the position and address attached to a new entry.
type Locator interface {
	CurrentLocation(ctx context.Context, highAccuracy bool) (*location.Location, error)
	ReverseGeocode(ctx context.Context, loc *location.Location) *location.Details
}

// Diary stores new entries.
type Diary interface {
	Insert(ctx context.Context, e models.DiaryEntry) (models.DiaryEntry, bool, error)
}

// State is a snapshot of the session.
type State struct {
	Phase  Phase
	Flash  camera.FlashMode
	Facing camera.Facing

	// Err is the failure that last returned the session to Idle. It is
	// cleared by the next capture.
	Err error

	// Saved is the entry created by the last confirmation.
	Saved *models.DiaryEntry
}

type Options struct {
	AnalysisDelay time.Duration
	HighAccuracy  bool
	// Now supplies the entry date. Defaults to time.Now.
	Now func() time.Time
}

type Session struct {
	device     camera.Device
	classifier Classifier
	locator    Locator
	media      media.Store
	diary      Diary
	log        logging.Logger
	opts       Options

	mu     sync.Mutex
	state  State
	frame  *camera.Frame
	subs   map[uint64]chan State
	nextID uint64

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewSession(
	device camera.Device,
	classifier Classifier,
	locator Locator,
	store media.Store,
	diary Diary,
	log logging.Logger,
	opts Options,
) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AnalysisDelay < 0 {
		opts.AnalysisDelay = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		device:     device,
		classifier: classifier,
		locator:    locator,
		media:      store,
		diary:      diary,
		log:        log,
		opts:       opts,
		state:      State{Phase: Idle{}},
		subs:       make(map[uint64]chan State),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe delivers the current state and every later change until ctx is
// done. A slow reader only sees the latest state.
func (s *Session) Subscribe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	})
	return ch
}

// publishLocked must be called with s.mu held.
func (s *Session) publishLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.state:
		default:
		}
	}
}

func (s *Session) update(fn func(st *State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.publishLocked()
	return s.state
}

// ToggleFlash cycles the flash mode for the next capture.
func (s *Session) ToggleFlash() camera.FlashMode {
	return s.update(func(st *State) { st.Flash = st.Flash.Next() }).Flash
}

// ToggleFacing switches lenses for the next capture.
func (s *Session) ToggleFacing() camera.Facing {
	return s.update(func(st *State) { st.Facing = st.Facing.Toggle() }).Facing
}

// Capture starts a capture cycle. It returns false, and does nothing, unless
// the session is Idle. The cycle continues in the background; follow it
// with State or Subscribe.
func (s *Session) Capture(ctx context.Context) bool {
	s.mu.Lock()
	if !IsIdle(s.state.Phase) || s.ctx.Err() != nil {
		phase := s.state.Phase
		s.mu.Unlock()
		s.log.Debug(ctx, "capture ignored", "phase", phase.String())
		return false
	}
	s.state.Phase = Capturing{}
	s.state.Err = nil
	settings := camera.Settings{Flash: s.state.Flash, Facing: s.state.Facing}
	s.wg.Add(1)
	s.publishLocked()
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(s.ctx, settings)
	}()
	return true
}

func (s *Session) run(ctx context.Context, settings camera.Settings) {
	frame, err := s.device.Capture(ctx, settings)
	if err != nil {
		s.fail(ctx, fmt.Errorf("capture photo: %w", err))
		return
	}
	if frame == nil {
		s.fail(ctx, fmt.Errorf("capture photo: %w", common.ErrNoFrame))
		return
	}
	s.hold(frame)

	preview, err := camera.Preview(frame)
	if err != nil {
		s.fail(ctx, fmt.Errorf("build preview: %w", err))
		return
	}
	s.update(func(st *State) { st.Phase = Analyzing{Preview: preview} })

	passed, err := s.classifier.Classify(ctx, frame)
	s.release()
	if err != nil {
		s.fail(ctx, fmt.Errorf("analyze photo: %w", err))
		return
	}
	s.log.Info(ctx, "photo analyzed", "outdoor", passed)

	if s.opts.AnalysisDelay > 0 {
		t := time.NewTimer(s.opts.AnalysisDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			s.fail(ctx, ctx.Err())
			return
		}
	}

	outcome := Failed
	if passed {
		outcome = Passed
	}
	s.update(func(st *State) { st.Phase = Decided{Outcome: outcome, Preview: preview} })
}

func (s *Session) hold(f *camera.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		_ = s.frame.Close()
	}
	s.frame = f
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.frame != nil {
		_ = s.frame.Close()
		s.frame = nil
	}
}

// fail releases everything and returns to Idle with err as the signal.
func (s *Session) fail(ctx context.Context, err error) {
	s.log.Error(ctx, "capture session failed", "error", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.state.Phase = Idle{}
	s.state.Err = err
	s.publishLocked()
}

// transition leaves a Decided phase accepted by allow for next(d).
func (s *Session) transition(allow func(Decided) bool, next func(Decided) Phase) (Decided, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(allow, next)
}

// transitionLocked must be called with s.mu held. A closed session accepts
// no transitions.
func (s *Session) transitionLocked(allow func(Decided) bool, next func(Decided) Phase) (Decided, error) {
	if s.ctx.Err() != nil {
		return Decided{}, fmt.Errorf("%w: session closed", common.ErrInvalidTransition)
	}
	d, ok := s.state.Phase.(Decided)
	if !ok || !allow(d) {
		return Decided{}, fmt.Errorf("%w: %s", common.ErrInvalidTransition, s.state.Phase)
	}
	s.releaseLocked()
	s.state.Phase = next(d)
	s.publishLocked()
	return d, nil
}

func isPassed(d Decided) bool   { return d.Outcome == Passed }
func isFailed(d Decided) bool   { return d.Outcome == Failed }
func anyDecided(d Decided) bool { return true }

func toIdle(Decided) Phase { return Idle{} }

// Discard drops a passed photo without saving it.
func (s *Session) Discard() error {
	_, err := s.transition(isPassed, toIdle)
	return err
}

// Retake dismisses a failed verdict so a new photo can be taken.
func (s *Session) Retake() error {
	_, err := s.transition(isFailed, toIdle)
	return err
}

// Abandon leaves a decided session, whatever the verdict. It is a no-op on
// an Idle session.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsIdle(s.state.Phase) {
		return nil
	}
	_, err := s.transitionLocked(anyDecided, toIdle)
	return err
}

// Confirm saves a passed photo and creates today's diary entry with any
// location that could be resolved. It blocks until the entry is stored.
// A media failure returns the session to Idle with an error wrapping
// common.ErrMediaSave and no entry is created.
func (s *Session) Confirm(ctx context.Context) (models.DiaryEntry, error) {
	s.mu.Lock()
	d, err := s.transitionLocked(isPassed, func(d Decided) Phase { return Persisting{Preview: d.Preview} })
	if err == nil {
		s.wg.Add(1)
	}
	s.mu.Unlock()
	if err != nil {
		return models.DiaryEntry{}, err
	}
	defer s.wg.Done()

	e, err := s.persist(ctx, d.Preview)
	if err != nil {
		s.fail(ctx, err)
		return models.DiaryEntry{}, err
	}

	s.update(func(st *State) {
		st.Phase = Idle{}
		st.Err = nil
		st.Saved = &e
	})
	return e, nil
}

func (s *Session) persist(ctx context.Context, img image.Image) (models.DiaryEntry, error) {
	ref, err := s.media.Save(ctx, img)
	if err != nil {
		return models.DiaryEntry{}, fmt.Errorf("%w: %w", common.ErrMediaSave, err)
	}

	e := models.DiaryEntry{
		CreationDate: models.Date(s.opts.Now()),
		ImagePath:    ref,
	}
	s.attachLocation(ctx, &e)

	saved, _, err := s.diary.Insert(ctx, e)
	if err != nil {
		if derr := s.media.Delete(context.WithoutCancel(ctx), ref); derr != nil {
			s.log.Warn(ctx, "orphaned photo", "ref", ref, "error", derr)
		}
		return models.DiaryEntry{}, fmt.Errorf("save diary entry: %w", err)
	}

	s.log.Info(ctx, "diary entry created", "id", saved.ID, "image", ref, "location", saved.HasLocation())
	return saved, nil
}

// attachLocation fills whatever location data is available. It never fails.
func (s *Session) attachLocation(ctx context.Context, e *models.DiaryEntry) {
	if s.locator == nil {
		return
	}

	loc, err := s.locator.CurrentLocation(ctx, s.opts.HighAccuracy)
	if err != nil || loc == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn(ctx, "location unavailable", "error", err)
		}
		return
	}
	e.Latitude = models.Float64Ptr(loc.Latitude)
	e.Longitude = models.Float64Ptr(loc.Longitude)

	if d := s.locator.ReverseGeocode(ctx, loc); d != nil {
		e.Street = d.Street
		e.StreetNumber = d.StreetNumber
		e.City = d.City
		e.Country = d.Country
	}
}

// Close stops background work, waits for it, including a running Confirm,
// and releases any held frame. A closed session rejects every transition.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// wg.Add happens under s.mu after an s.ctx check.
		s.mu.Lock()
		s.cancel()
		s.mu.Unlock()
		s.wg.Wait()
		s.release()
	})
	return nil
}
