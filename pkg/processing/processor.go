package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// DecodeError reports a file that exists but is not a decodable image
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is, or wraps, a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Processor handles image processing operations
type Processor struct {
	jpegQuality int
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{jpegQuality: 95}
}

// NewProcessorWithQuality creates a processor that saves JPEG output at the given quality
func NewProcessorWithQuality(quality int) *Processor {
	if quality < 1 || quality > 100 {
		quality = 95
	}
	return &Processor{jpegQuality: quality}
}

// LoadImage reads a file and decodes it into an opaque RGB image.
// Read failures are returned as-is; undecodable content yields a *DecodeError.
func (p *Processor) LoadImage(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// DecodeImage decodes image bytes with EXIF orientation applied, falling back to WebP
// for payloads saved under the wrong extension. Alpha is discarded.
func (p *Processor) DecodeImage(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image: empty input")
	}

	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return ToRGB(img), nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return ToRGB(img), nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// ToRGB returns an opaque copy of img. Color channels are kept and alpha is forced to
// fully opaque, matching a plain RGB conversion.
func ToRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// PrepareImageForModel resizes an image to exactly width x height and returns it
// base64 encoded in the requested format (jpg|png)
func (p *Processor) PrepareImageForModel(img image.Image, format string, width, height, quality int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid model input size %dx%d", width, height)
	}

	resized := transform.Resize(img, width, height, transform.Linear)

	var enc imgio.Encoder
	switch strings.ToLower(format) {
	case "png":
		enc = imgio.PNGEncoder()
	case "", "jpg", "jpeg":
		enc = imgio.JPEGEncoder(quality)
	default:
		return "", fmt.Errorf("unsupported model input format: %s", format)
	}

	var buf bytes.Buffer
	if err := enc(&buf, resized); err != nil {
		return "", fmt.Errorf("encode model input: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage writes an image to path, choosing the encoder from the file extension
func (p *Processor) SaveImage(img image.Image, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(p.jpegQuality))
	case ".png":
		return imaging.Save(img, path, imaging.PNGCompressionLevel(png.DefaultCompression))
	case ".webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: float32(p.jpegQuality)})
	default:
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}
}
