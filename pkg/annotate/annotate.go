// Package annotate burns caption text onto copies of images.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"k8s.io/klog/v2"
)

// Options controls how captions are drawn
type Options struct {
	FontPath string  // preferred TrueType/OpenType font
	FontSize float64 // in points at 72 DPI
	Color    string  // hex, e.g. "#ffffff"
	X        int     // left edge of the text
	Y        int     // top edge of the text
}

// DefaultOptions returns white 18pt text at (10,10) using arial.ttf when available
func DefaultOptions() Options {
	return Options{
		FontPath: "arial.ttf",
		FontSize: 18,
		Color:    "#ffffff",
		X:        10,
		Y:        10,
	}
}

// Annotator draws captions with a fixed face, color and offset
type Annotator struct {
	face     font.Face
	color    color.Color
	origin   image.Point
	fallback bool
}

// New creates an Annotator. A font that cannot be loaded is replaced by the built-in
// bitmap face; only an invalid color is an error.
func New(opts Options) (*Annotator, error) {
	c, err := ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}

	a := &Annotator{
		color:  c,
		origin: image.Pt(opts.X, opts.Y),
	}

	face, err := loadFace(opts.FontPath, opts.FontSize)
	if err != nil {
		klog.V(1).Infof("font %q unavailable, using default face: %v", opts.FontPath, err)
		face = basicfont.Face7x13
		a.fallback = true
	}
	a.face = face

	return a, nil
}

// ParseColor converts a hex color string into an opaque color
func ParseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid caption color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return nil, fmt.Errorf("no font path configured")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// UsingFallback reports whether the built-in face replaced the preferred font
func (a *Annotator) UsingFallback() bool {
	return a.fallback
}

// Overlay returns a copy of img with the caption drawn from the configured top-left offset.
// img itself is never modified.
func (a *Annotator) Overlay(img image.Image, caption string) *image.NRGBA {
	dst := imaging.Clone(img)
	if caption == "" {
		return dst
	}

	b := dst.Bounds()
	ascent := a.face.Metrics().Ascent
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(a.color),
		Face: a.face,
		Dot: fixed.Point26_6{
			X: fixed.I(b.Min.X + a.origin.X),
			Y: fixed.I(b.Min.Y+a.origin.Y) + ascent,
		},
	}
	d.DrawString(caption)

	return dst
}
