// Package classifier decides whether a photo shows an outdoor scene. A
// Labeler ranks Places365 scene categories for the image and the Engine
// turns those labels into a single verdict through the bundled
// indoor/outdoor table.
package classifier

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/dmitrijs2005/gooutside/internal/camera"
	"github.com/dmitrijs2005/gooutside/internal/common"
	"github.com/dmitrijs2005/gooutside/internal/logging"
)

const (
	DefaultMinConfidence = 0.1
	DefaultMaxLabels     = 10

	// outdoorThreshold is the share of outdoor labels a photo must exceed.
	outdoorThreshold = 0.5
)

// Label is one scored scene category.
type Label struct {
	Index      int
	Text       string
	Confidence float32
}

// Labeler ranks scene categories for an image.
type Labeler interface {
	Label(ctx context.Context, img image.Image) ([]Label, error)
}

// Engine is safe for concurrent use.
type Engine struct {
	labeler Labeler
	table   *Table
	log     logging.Logger

	minConfidence float32
	maxLabels     int
}

type Option func(*Engine)

// WithMinConfidence drops labels scored below c.
func WithMinConfidence(c float32) Option {
	return func(e *Engine) { e.minConfidence = c }
}

// WithMaxLabels keeps at most n labels.
func WithMaxLabels(n int) Option {
	return func(e *Engine) { e.maxLabels = n }
}

// WithTable replaces the bundled indoor/outdoor table.
func WithTable(t *Table) Option {
	return func(e *Engine) { e.table = t }
}

func NewEngine(labeler Labeler, log logging.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		labeler:       labeler,
		log:           log,
		minConfidence: DefaultMinConfidence,
		maxLabels:     DefaultMaxLabels,
	}
	for _, o := range opts {
		o(e)
	}
	if e.table == nil {
		t, err := DefaultTable()
		if err != nil {
			return nil, fmt.Errorf("load io table: %w", err)
		}
		e.table = t
	}
	return e, nil
}

// Classify reports whether the frame shows an outdoor scene. It does not
// take ownership of f. A photo without any usable label is not outdoor; a
// labeler failure is returned as an error wrapping common.ErrInference.
func (e *Engine) Classify(ctx context.Context, f *camera.Frame) (bool, error) {
	img, err := camera.Decode(f)
	if err != nil {
		return false, fmt.Errorf("classify: %w", err)
	}

	labels, err := e.labeler.Label(ctx, img)
	if err != nil {
		return false, fmt.Errorf("classify: %w: %w", common.ErrInference, err)
	}

	labels = e.selectLabels(labels)
	if len(labels) == 0 {
		e.log.Debug(ctx, "no labels found")
		return false, nil
	}

	var sum float64
	for _, l := range labels {
		outdoor, _ := e.table.Outdoor(l.Index)
		if outdoor {
			sum++
		}
		e.log.Debug(ctx, "label", "text", l.Text, "index", l.Index, "confidence", l.Confidence, "outdoor", outdoor)
	}
	score := sum / float64(len(labels))
	e.log.Debug(ctx, "io score", "score", score, "labels", len(labels))

	return score > outdoorThreshold, nil
}

// selectLabels applies the confidence floor and the result cap. Labels with
// an index outside the table are ignored.
func (e *Engine) selectLabels(in []Label) []Label {
	out := make([]Label, 0, len(in))
	for _, l := range in {
		if l.Confidence < e.minConfidence {
			continue
		}
		if _, ok := e.table.Outdoor(l.Index); !ok {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if e.maxLabels > 0 && len(out) > e.maxLabels {
		out = out[:e.maxLabels]
	}
	return out
}
