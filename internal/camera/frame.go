// Package camera adapts an image source to the capture session. A Frame is
// the raw still produced by a Device; it owns its encoded bytes until Close.
package camera

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/gooutside/internal/common"
	_ "golang.org/x/image/webp"
)

// Frame is a captured still: encoded image bytes plus the clockwise
// rotation (0, 90, 180 or 270 degrees) needed to display it upright.
type Frame struct {
	Rotation int
	Facing   Facing

	mu     sync.Mutex
	data   []byte
	closed bool
}

// NewFrame wraps encoded image bytes.
func NewFrame(data []byte, rotation int, facing Facing) *Frame {
	return &Frame{data: data, Rotation: normaliseRotation(rotation), Facing: facing}
}

func normaliseRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Bytes returns the encoded image, or nil once the frame was closed.
func (f *Frame) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Close releases the image buffer. Calling it more than once is harmless.
func (f *Frame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
	f.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (f *Frame) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Decode parses the frame bytes. It does not apply Rotation.
func Decode(f *Frame) (image.Image, error) {
	if f == nil {
		return nil, common.ErrNoFrame
	}
	data := f.Bytes()
	if len(data) == 0 {
		return nil, common.ErrNoFrame
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUndecodableFrame, err)
	}
	return img, nil
}

// Preview returns the frame as it should be shown to the user: rotated
// upright and mirrored for the front lens.
func Preview(f *Frame) (image.Image, error) {
	img, err := Decode(f)
	if err != nil {
		return nil, err
	}

	switch f.Rotation {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	}

	if f.Facing == FacingFront {
		img = imaging.FlipH(img)
	}
	return img, nil
}
