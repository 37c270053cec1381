// Package metadata embeds captions and hashtags into image files with exiftool.
package metadata

import (
	"fmt"
	"strings"

	"github.com/barasher/go-exiftool"

	"github.com/menta2k/image-captioner/pkg/types"
)

// Writer stores captions as ImageDescription and hashtags as Keywords.
// It keeps one exiftool process open; Close must be called when done.
type Writer struct {
	et *exiftool.Exiftool
}

// NewWriter starts an exiftool process. It fails if exiftool is not installed.
func NewWriter() (*Writer, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &Writer{et: et}, nil
}

// Keywords converts hashtags to plain keywords
func Keywords(hashtags []string) []string {
	kw := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		if k := strings.TrimPrefix(h, "#"); k != "" {
			kw = append(kw, k)
		}
	}
	return kw
}

// Write embeds rec's caption and hashtags into the file at path
func (w *Writer) Write(path string, rec types.ImageRecord) error {
	fms := w.et.ExtractMetadata(path)
	if len(fms) == 0 {
		return fmt.Errorf("extract metadata for %s: no result", path)
	}
	if fms[0].Err != nil {
		return fmt.Errorf("extract metadata for %s: %w", path, fms[0].Err)
	}

	fms[0].SetString("ImageDescription", rec.Caption)
	fms[0].SetStrings("Keywords", Keywords(rec.Hashtags))

	w.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("write metadata for %s: %w", path, fms[0].Err)
	}
	return nil
}

// Read returns the caption and keywords stored in path
func (w *Writer) Read(path string) (string, []string, error) {
	fms := w.et.ExtractMetadata(path)
	if len(fms) == 0 {
		return "", nil, fmt.Errorf("extract metadata for %s: no result", path)
	}
	if fms[0].Err != nil {
		return "", nil, fmt.Errorf("extract metadata for %s: %w", path, fms[0].Err)
	}

	desc, err := fms[0].GetString("ImageDescription")
	if err != nil {
		return "", nil, fmt.Errorf("get description: %w", err)
	}
	kw, err := fms[0].GetStrings("Keywords")
	if err != nil {
		return desc, nil, nil
	}
	return desc, kw, nil
}

// Close stops the exiftool process
func (w *Writer) Close() error {
	return w.et.Close()
}
