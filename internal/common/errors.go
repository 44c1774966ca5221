// Package common defines sentinel errors shared by the diary, classifier,
// location and capture layers. Callers should use errors.Is to match these
// values; producers wrap them with fmt.Errorf("...: %w", err).
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Frame/input errors raised while analysing a captured photo.
	ErrNoFrame          = errors.New("no frame available")
	ErrUndecodableFrame = errors.New("frame cannot be decoded")

	// ErrInference marks a failure of the underlying image labeler. It must
	// never be treated as a "not outdoor" verdict.
	ErrInference = errors.New("inference failed")

	// Session flow errors.
	ErrBusy              = errors.New("capture already in progress")
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrMediaSave is returned when the photo could not be persisted to the
	// media store; no diary entry is created in that case.
	ErrMediaSave = errors.New("media save failed")
)
