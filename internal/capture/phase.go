package capture

import "image"

// Phase is the position of a session in its capture cycle. The concrete
// types are Idle, Capturing, Analyzing, Decided and Persisting.
type Phase interface {
	phase()
	String() string
}

// Idle holds nothing and accepts a capture request.
type Idle struct{}

// Capturing waits for the camera.
type Capturing struct{}

// Analyzing shows the upright preview while the classifier runs.
type Analyzing struct {
	Preview image.Image
}

// Outcome is the classifier verdict.
type Outcome int

const (
	Failed Outcome = iota
	Passed
)

func (o Outcome) String() string {
	if o == Passed {
		return "passed"
	}
	return "failed"
}

// Decided offers confirm/discard after Passed and retake/abandon after Failed.
type Decided struct {
	Outcome Outcome
	Preview image.Image
}

// Persisting saves the accepted photo and creates the diary entry.
type Persisting struct {
	Preview image.Image
}

func (Idle) phase()       {}
func (Capturing) phase()  {}
func (Analyzing) phase()  {}
func (Decided) phase()    {}
func (Persisting) phase() {}

func (Idle) String() string       { return "idle" }
func (Capturing) String() string  { return "capturing" }
func (Analyzing) String() string  { return "analyzing" }
func (d Decided) String() string  { return "decided(" + d.Outcome.String() + ")" }
func (Persisting) String() string { return "persisting" }

// IsIdle reports whether p is Idle.
func IsIdle(p Phase) bool {
	_, ok := p.(Idle)
	return ok
}

// PreviewOf returns the preview carried by p, if any.
func PreviewOf(p Phase) image.Image {
	switch v := p.(type) {
	case Analyzing:
		return v.Preview
	case Decided:
		return v.Preview
	case Persisting:
		return v.Preview
	}
	return nil
}
