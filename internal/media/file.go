package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gooutside/internal/filex"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/google/uuid"
)

// FileStore keeps photos as files in a single directory. References are
// absolute file paths.
type FileStore struct {
	dir     string
	format  Format
	quality int
	log     logging.Logger
}

// NewFileStore creates dir when missing.
func NewFileStore(dir string, format Format, log logging.Logger) (*FileStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &FileStore{dir: abs, format: format, quality: DefaultQuality, log: log}, nil
}

// Dir returns the absolute media directory.
func (s *FileStore) Dir() string { return s.dir }

func fileName(now time.Time, f Format) string {
	return "IMG_" + now.Format("20060102_150405") + "_" + uuid.NewString()[:8] + f.Ext()
}

func (s *FileStore) Save(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, fileName(time.Now(), s.format))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := encode(f, img, s.format, s.quality); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	s.log.Info(ctx, "photo saved", "path", path)
	return path, nil
}

// Delete removes a photo saved by this store. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if !filex.Within(s.dir, ref) {
		return fmt.Errorf("media reference %q is outside %s", ref, s.dir)
	}
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}
