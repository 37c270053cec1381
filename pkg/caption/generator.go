package caption

import (
	"context"
	"fmt"
	"image"
	"regexp"
	"strings"
	"unicode"

	"github.com/menta2k/image-captioner/pkg/client"
	"github.com/menta2k/image-captioner/pkg/processing"
	"github.com/menta2k/image-captioner/pkg/types"
)

// Prompts per caption style. The model answers with the caption sentence only.
const (
	DefaultPrompt = `Write a one-sentence caption for this image.
Reply with the caption only: no quotes, no markdown, no preamble.`

	CreativePrompt = `Write a short, vivid, imaginative one-sentence caption for this image, the kind a photographer would post alongside it.
Reply with the caption only: no quotes, no markdown, no hashtags, no preamble.`

	FactualPrompt = `Write a short, literal one-sentence caption describing only what is visible in this image.
Do not guess identities or locations. Reply with the caption only: no quotes, no markdown, no preamble.`
)

// Prompt returns the instruction sent with the image for a style
func Prompt(style types.CaptionStyle) string {
	switch style {
	case types.StyleCreative:
		return CreativePrompt
	case types.StyleFactual:
		return FactualPrompt
	default:
		return DefaultPrompt
	}
}

// StartupError reports a captioning backend that cannot serve requests.
// It is only produced by Check and is fatal for a run.
type StartupError struct {
	Model string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("captioning model %q failed to load: %v", e.Model, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Options controls how images are prepared for the model
type Options struct {
	Model       string
	Width       int    // normalization width
	Height      int    // normalization height
	SendFormat  string // jpg|png
	SendQuality int    // JPEG quality for the payload
}

// DefaultOptions normalizes to 384x384 JPEG at quality 90
func DefaultOptions(model string) Options {
	return Options{
		Model:       model,
		Width:       384,
		Height:      384,
		SendFormat:  "jpg",
		SendQuality: 90,
	}
}

// Generator produces captions for images using a vision client
type Generator struct {
	client    client.VisionClient
	processor *processing.Processor
	opts      Options
}

// NewGenerator creates a new generator around a vision client
func NewGenerator(client client.VisionClient, processor *processing.Processor, opts Options) *Generator {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 384, 384
	}
	if opts.SendFormat == "" {
		opts.SendFormat = "jpg"
	}
	if opts.SendQuality <= 0 {
		opts.SendQuality = 90
	}
	return &Generator{client: client, processor: processor, opts: opts}
}

// Model returns the configured model name
func (g *Generator) Model() string {
	return g.opts.Model
}

// Check verifies the backend can serve the configured model
func (g *Generator) Check(ctx context.Context) error {
	if err := g.client.Check(ctx, g.opts.Model); err != nil {
		return &StartupError{Model: g.opts.Model, Err: err}
	}
	return nil
}

// Caption normalizes img and returns a single-line caption generated with the style's decoding policy.
// img is not modified.
func (g *Generator) Caption(ctx context.Context, img image.Image, style types.CaptionStyle) (string, error) {
	imgB64, err := g.processor.PrepareImageForModel(img, g.opts.SendFormat, g.opts.Width, g.opts.Height, g.opts.SendQuality)
	if err != nil {
		return "", fmt.Errorf("prepare image: %w", err)
	}

	raw, err := g.client.Caption(ctx, g.opts.Model, Prompt(style), imgB64, style.Decoding())
	if err != nil {
		return "", fmt.Errorf("generate caption: %w", err)
	}

	caption := Clean(raw)
	if caption == "" {
		return "", fmt.Errorf("generate caption: model returned no usable text (%q)", raw)
	}
	return caption, nil
}

var (
	reSpace    = regexp.MustCompile(`\s+`)
	rePreamble = regexp.MustCompile(`(?i)^(caption|here is a caption|here's a caption)\b[^:\n]{0,40}:\s*`)
	reSpecial  = regexp.MustCompile(`<\|?/?[a-zA-Z_]+\|?>|\[/?(SEP|CLS|PAD|INST)\]`)
)

// Clean turns raw model text into a single caption line: special tokens, code fences,
// markdown emphasis, leading labels and wrapping quotes are removed and whitespace collapsed.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	s = reSpecial.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = reSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = rePreamble.ReplaceAllString(s, "")
	s = strings.Trim(s, "`*_ ")
	s = trimQuotes(s)

	return strings.TrimSpace(s)
}

func trimQuotes(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"‘", "’"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}
