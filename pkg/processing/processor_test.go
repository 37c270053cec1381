package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadImage(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "gradient.png")
	writePNG(t, path, createTestImage(64, 48))

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("Expected 64x48, got %v", img.Bounds())
	}
}

func TestLoadImageCorrupt(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.LoadImage(path)
	if err == nil {
		t.Fatal("Expected error for corrupt image")
	}
	if !IsDecodeError(err) {
		t.Errorf("Expected DecodeError, got %T: %v", err, err)
	}
}

func TestLoadImageMissing(t *testing.T) {
	p := NewProcessor()
	_, err := p.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if IsDecodeError(err) {
		t.Error("Missing file should not be reported as a decode error")
	}
}

func TestToRGBDropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 0})
	src.SetNRGBA(1, 1, color.NRGBA{10, 20, 30, 128})

	dst := ToRGB(src)
	if got := dst.NRGBAAt(0, 0); got != (color.NRGBA{200, 100, 50, 255}) {
		t.Errorf("Expected color kept with opaque alpha, got %v", got)
	}
	if got := dst.NRGBAAt(1, 1); got.A != 255 || got.R != 10 {
		t.Errorf("Expected opaque pixel with original red, got %v", got)
	}
}

func TestToRGBOffsetBounds(t *testing.T) {
	src := createTestImage(10, 10).SubImage(image.Rect(5, 5, 10, 10))
	dst := ToRGB(src)
	if dst.Bounds().Min != (image.Point{}) || dst.Bounds().Dx() != 5 {
		t.Errorf("Expected zero-origin 5x5 image, got %v", dst.Bounds())
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(800, 600)

	for _, format := range []string{"jpg", "png"} {
		b64, err := p.PrepareImageForModel(img, format, 384, 384, 85)
		if err != nil {
			t.Fatalf("PrepareImageForModel(%s) failed: %v", format, err)
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			t.Fatalf("Invalid base64: %v", err)
		}
		cfg, decFormat, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Encoded payload does not decode: %v", err)
		}
		if cfg.Width != 384 || cfg.Height != 384 {
			t.Errorf("Expected 384x384, got %dx%d", cfg.Width, cfg.Height)
		}
		if format == "jpg" && decFormat != "jpeg" {
			t.Errorf("Expected jpeg payload, got %s", decFormat)
		}
		if format == "png" && decFormat != "png" {
			t.Errorf("Expected png payload, got %s", decFormat)
		}
	}
}

func TestPrepareImageForModelErrors(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(10, 10)

	if _, err := p.PrepareImageForModel(img, "gif", 384, 384, 85); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if _, err := p.PrepareImageForModel(img, "jpg", 0, 384, 85); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestSaveImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(32, 32)

	for _, name := range []string{"out.jpg", "out.JPEG", "out.png"} {
		path := filepath.Join(dir, name)
		if err := p.SaveImage(img, path); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", name, err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		_, format, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("Saved %s does not decode: %v", name, err)
		}
		if name == "out.png" && format != "png" {
			t.Errorf("Expected png, got %s", format)
		}
		if name != "out.png" && format != "jpeg" {
			t.Errorf("Expected jpeg for %s, got %s", name, format)
		}
	}

	if err := p.SaveImage(img, filepath.Join(dir, "out.bmp")); err == nil {
		t.Error("Expected error for unsupported output format")
	}
}

func TestDecodeImageJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(20, 10), nil); err != nil {
		t.Fatal(err)
	}
	img, err := NewProcessor().DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("Expected 20x10, got %v", img.Bounds())
	}
}

func TestDecodeImageEmpty(t *testing.T) {
	if _, err := NewProcessor().DecodeImage(nil); err == nil {
		t.Error("Expected error for empty input")
	}
}
