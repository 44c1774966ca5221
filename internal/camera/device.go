package camera

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/logging"
)

// Device produces still frames. Implementations must honour ctx cancellation.
type Device interface {
	Capture(ctx context.Context, s Settings) (*Frame, error)
}

// FileDevice is a Device fed with image files, one file per capture.
type FileDevice struct {
	log logging.Logger

	mu      sync.Mutex
	pending []string
}

func NewFileDevice(log logging.Logger) *FileDevice {
	return &FileDevice{log: log}
}

// Queue schedules path to be returned by the next Capture.
func (d *FileDevice) Queue(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, path)
}

// Pending returns the number of queued files.
func (d *FileDevice) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Capture reads the next queued file. Files carry no orientation metadata,
// so frames have zero rotation.
func (d *FileDevice) Capture(ctx context.Context, s Settings) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return nil, fmt.Errorf("file device: %w", common.ErrNoFrame)
	}
	path := d.pending[0]
	d.pending = d.pending[1:]
	d.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file device: read %s: %w", path, err)
	}

	d.log.Debug(ctx, "frame captured", "path", path, "bytes", len(data), "flash", s.Flash.String(), "facing", s.Facing.String())
	return NewFrame(data, 0, s.Facing), nil
}
