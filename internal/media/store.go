// Package media persists accepted photos. A Store returns an opaque
// reference that is written into the diary entry's image path.
package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Store saves encoded photos and removes them again.
type Store interface {
	Save(ctx context.Context, img image.Image) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}

// Format is the on-disk encoding of saved photos.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"

	DefaultQuality = 90
)

// ParseFormat accepts jpeg, jpg or webp.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported media format %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatWebP {
		return ".webp"
	}
	return ".jpg"
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

func encode(w io.Writer, img image.Image, f Format, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	switch f {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
}
