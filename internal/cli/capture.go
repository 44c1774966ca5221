package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gooutside/internal/capture"
	"github.com/dmitrijs2005/gooutside/internal/common"
)

// Capture feeds the image at path to the camera, runs one capture cycle and
// waits for its verdict.
func (a *App) Capture(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return a.fail(ctx, err)
	}
	if st := a.session.State(); !capture.IsIdle(st.Phase) {
		return a.fail(ctx, fmt.Errorf("%w (%s)", common.ErrBusy, st.Phase))
	}

	a.device.Queue(path)
	if !a.session.Capture(ctx) {
		return a.fail(ctx, common.ErrBusy)
	}

	st, err := a.waitSettled(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	switch p := st.Phase.(type) {
	case capture.Decided:
		b := p.Preview.Bounds()
		if p.Outcome == capture.Passed {
			fmt.Fprintf(a.out, "Outdoor photo (%dx%d). Type 'save' to add it to your diary or 'discard'.\n", b.Dx(), b.Dy())
		} else {
			fmt.Fprintln(a.out, "This photo does not look like it was taken outdoors. Type 'retake' to try again.")
		}
		return nil
	default:
		if st.Err != nil {
			return a.fail(ctx, st.Err)
		}
		return nil
	}
}

// waitSettled follows the session until the running cycle reaches a
// decision or falls back to Idle.
func (a *App) waitSettled(ctx context.Context) (capture.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	analyzing := false
	for st := range a.session.Subscribe(ctx) {
		switch st.Phase.(type) {
		case capture.Capturing:
		case capture.Analyzing:
			if !analyzing {
				analyzing = true
				fmt.Fprintln(a.out, "Analyzing...")
			}
		default:
			return st, nil
		}
	}
	return capture.State{}, ctx.Err()
}

// Save confirms a passed photo.
func (a *App) Save(ctx context.Context) error {
	e, err := a.session.Confirm(ctx)
	if err != nil {
		return a.fail(ctx, transitionError(err, "there is no outdoor photo to save"))
	}
	fmt.Fprintf(a.out, "Saved entry #%d: %s, %s\n", e.ID, e.FormattedDate(), oneLine(e.FormattedLocation()))
	return nil
}

func (a *App) Discard(ctx context.Context) error {
	if err := a.session.Discard(); err != nil {
		return a.fail(ctx, transitionError(err, "there is no outdoor photo to discard"))
	}
	fmt.Fprintln(a.out, "Photo discarded.")
	return nil
}

func (a *App) Retake(ctx context.Context) error {
	if err := a.session.Retake(); err != nil {
		return a.fail(ctx, transitionError(err, "there is no rejected photo to retake"))
	}
	fmt.Fprintln(a.out, "Ready for another photo.")
	return nil
}

func (a *App) Abandon(ctx context.Context) error {
	if err := a.session.Abandon(); err != nil {
		return a.fail(ctx, transitionError(err, "wait for the analysis to finish"))
	}
	fmt.Fprintln(a.out, "Session reset.")
	return nil
}

func (a *App) Flash(ctx context.Context) error {
	fmt.Fprintf(a.out, "Flash: %s\n", a.session.ToggleFlash())
	return nil
}

func (a *App) Facing(ctx context.Context) error {
	fmt.Fprintf(a.out, "Camera: %s\n", a.session.ToggleFacing())
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.session.State()
	fmt.Fprintf(a.out, "Phase: %s\n", st.Phase)
	fmt.Fprintf(a.out, "Flash: %s\n", st.Flash)
	fmt.Fprintf(a.out, "Camera: %s\n", st.Facing)
	if n := a.device.Pending(); n > 0 {
		fmt.Fprintf(a.out, "Queued photos: %d\n", n)
	}
	if st.Err != nil {
		fmt.Fprintf(a.out, "Last error: %v\n", st.Err)
	}
	if st.Saved != nil {
		fmt.Fprintf(a.out, "Last saved: #%d\n", st.Saved.ID)
	}
	return nil
}

func transitionError(err error, msg string) error {
	if errors.Is(err, common.ErrInvalidTransition) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}

// fail reports err to the user and returns it.
func (a *App) fail(ctx context.Context, err error) error {
	a.log.Debug(ctx, "command failed", "error", err)
	fmt.Fprintf(a.out, "error: %v\n", err)
	return err
}
