package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// twoPixels is a 2x1 image: red on the left, blue on the right.
func twoPixels() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, red)
	img.Set(1, 0, blue)
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func at(img image.Image, x, y int) color.NRGBA {
	b := img.Bounds()
	return color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
}

func TestFlashMode_Next(t *testing.T) {
	assert.Equal(t, FlashAuto, FlashOff.Next())
	assert.Equal(t, FlashOn, FlashAuto.Next())
	assert.Equal(t, FlashOff, FlashOn.Next())
	assert.Equal(t, "auto", FlashAuto.String())
}

func TestFacing_Toggle(t *testing.T) {
	assert.Equal(t, FacingFront, FacingBack.Toggle())
	assert.Equal(t, FacingBack, FacingFront.Toggle())
	assert.Equal(t, "front", FacingFront.String())
}

func TestFrame_CloseIsIdempotent(t *testing.T) {
	f := NewFrame([]byte{1, 2, 3}, -90, FacingBack)
	assert.Equal(t, 270, f.Rotation)
	assert.False(t, f.Closed())

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	assert.Nil(t, f.Bytes())
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, common.ErrNoFrame)

	closed := NewFrame(encodePNG(t, twoPixels()), 0, FacingBack)
	_ = closed.Close()
	_, err = Decode(closed)
	assert.ErrorIs(t, err, common.ErrNoFrame)

	_, err = Decode(NewFrame([]byte("definitely not an image"), 0, FacingBack))
	assert.ErrorIs(t, err, common.ErrUndecodableFrame)
}

func TestDecode_WebP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, twoPixels(), &webp.Options{Lossless: true}))

	img, err := Decode(NewFrame(buf.Bytes(), 0, FacingBack))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, red, at(img, 0, 0))
}

func TestPreview_RotationAndMirror(t *testing.T) {
	data := encodePNG(t, twoPixels())

	tests := []struct {
		name       string
		rotation   int
		facing     Facing
		w, h       int
		first, end color.NRGBA
	}{
		{"upright back", 0, FacingBack, 2, 1, red, blue},
		{"upright front is mirrored", 0, FacingFront, 2, 1, blue, red},
		{"quarter turn", 90, FacingBack, 1, 2, red, blue},
		{"half turn", 180, FacingBack, 2, 1, blue, red},
		{"three quarter turn", 270, FacingBack, 1, 2, blue, red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Preview(NewFrame(data, tt.rotation, tt.facing))
			require.NoError(t, err)
			require.Equal(t, tt.w, img.Bounds().Dx())
			require.Equal(t, tt.h, img.Bounds().Dy())
			assert.Equal(t, tt.first, at(img, 0, 0))
			assert.Equal(t, tt.end, at(img, tt.w-1, tt.h-1))
		})
	}
}

func TestFileDevice_CapturesQueuedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "park.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, twoPixels()), 0o600))

	d := NewFileDevice(logging.Nop())
	ctx := context.Background()

	_, err := d.Capture(ctx, Settings{})
	assert.ErrorIs(t, err, common.ErrNoFrame)

	d.Queue(path)
	d.Queue(filepath.Join(dir, "missing.png"))
	assert.Equal(t, 2, d.Pending())

	f, err := d.Capture(ctx, Settings{Facing: FacingFront, Flash: FlashOn})
	require.NoError(t, err)
	assert.Equal(t, FacingFront, f.Facing)
	_, err = Decode(f)
	assert.NoError(t, err)

	_, err = d.Capture(ctx, Settings{})
	assert.Error(t, err)
	assert.Equal(t, 0, d.Pending())
}

func TestFileDevice_HonoursCancelledContext(t *testing.T) {
	d := NewFileDevice(logging.Nop())
	d.Queue("whatever.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Capture(ctx, Settings{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, d.Pending())
}
