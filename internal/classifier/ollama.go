package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llava"

	// DefaultMaxDim bounds the longer image side sent to the model.
	DefaultMaxDim = 512
)

// ChatClient is the part of *api.Client used by OllamaLabeler.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// OllamaLabeler asks an Ollama vision model to rank the table categories
// that best describe an image.
type OllamaLabeler struct {
	client ChatClient
	model  string
	table  *Table
	maxDim int
	log    logging.Logger
}

// NewOllamaLabeler connects to the Ollama server at rawURL. Any path in
// rawURL is ignored.
func NewOllamaLabeler(rawURL, model string, table *Table, log logging.Logger) (*OllamaLabeler, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q", rawURL)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host}

	return NewOllamaLabelerWithClient(api.NewClient(base, http.DefaultClient), model, table, log), nil
}

func NewOllamaLabelerWithClient(c ChatClient, model string, table *Table, log logging.Logger) *OllamaLabeler {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaLabeler{client: c, model: model, table: table, maxDim: DefaultMaxDim, log: log}
}

type modelLabels struct {
	Labels []struct {
		Label      string  `json:"label"`
		Confidence float32 `json:"confidence"`
	} `json:"labels"`
}

func (o *OllamaLabeler) prompt() string {
	var b strings.Builder
	b.WriteString("Classify the scene in this photo. Choose up to 10 categories from the list below ")
	b.WriteString("and give each a confidence between 0 and 1. ")
	b.WriteString(`Answer only with JSON: {"labels":[{"label":"<category>","confidence":<number>}]}`)
	b.WriteString("\nCategories: ")
	b.WriteString(strings.Join(o.table.Names(), ", "))
	return b.String()
}

// Label implements Labeler. The result is sorted by descending confidence;
// names the model invents are dropped.
func (o *OllamaLabeler) Label(ctx context.Context, img image.Image) ([]Label, error) {
	data, err := o.encode(img)
	if err != nil {
		return nil, err
	}

	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{{
			Role:    "user",
			Content: o.prompt(),
			Images:  []api.ImageData{api.ImageData(data)},
		}},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0,
		},
	}

	var content strings.Builder
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return o.parse(ctx, content.String())
}

func (o *OllamaLabeler) encode(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if o.maxDim > 0 && (b.Dx() > o.maxDim || b.Dy() > o.maxDim) {
		img = imaging.Fit(img, o.maxDim, o.maxDim, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image for model: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *OllamaLabeler) parse(ctx context.Context, raw string) ([]Label, error) {
	raw = sanitizeModelJSON(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	var ml modelLabels
	if err := json.Unmarshal([]byte(raw), &ml); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	out := make([]Label, 0, len(ml.Labels))
	for _, l := range ml.Labels {
		idx, ok := o.table.Lookup(l.Label)
		if !ok {
			o.log.Debug(ctx, "unknown category from model", "label", l.Label)
			continue
		}
		out = append(out, Label{Index: idx, Text: o.table.Name(idx), Confidence: l.Confidence})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailComma   = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON strips code fences, comments and trailing commas and
// keeps the outermost object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
