package metadata

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/image-captioner/pkg/types"
)

func TestKeywords(t *testing.T) {
	got := Keywords([]string{"#a", "#cat", "#", "plain"})
	if diff := cmp.Diff([]string{"a", "cat", "plain"}, got); diff != "" {
		t.Errorf("Keywords mismatch (-want +got):\n%s", diff)
	}
	if Keywords(nil) == nil {
		t.Error("Expected empty slice, got nil")
	}
}

func TestWriteAndRead(t *testing.T) {
	if _, err := exec.LookPath("exiftool"); err != nil {
		t.Skip("exiftool not installed")
	}

	path := filepath.Join(t.TempDir(), "photo.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	w, err := NewWriter()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	rec := types.ImageRecord{Filename: "photo.jpg", Caption: "a red dot", Hashtags: []string{"#a", "#red", "#dot"}}
	if err := w.Write(path, rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	desc, kw, err := w.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if desc != "a red dot" {
		t.Errorf("Expected description %q, got %q", "a red dot", desc)
	}
	if diff := cmp.Diff([]string{"a", "red", "dot"}, kw); diff != "" {
		t.Errorf("Keywords mismatch (-want +got):\n%s", diff)
	}
}
