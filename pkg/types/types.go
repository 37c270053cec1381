package types

import (
	"fmt"
	"strings"
	"time"
)

// ImageRecord is the per-image result of a batch run
type ImageRecord struct {
	Filename string   `json:"filename"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// RunSummary contains aggregate timing for one batch run
type RunSummary struct {
	TotalImages        int     `json:"total_images"`
	TotalTimeSec       float64 `json:"total_time_sec"`
	AvgTimePerImageSec float64 `json:"avg_time_per_image_sec"`
}

// NewRunSummary builds a summary from the number of captioned images and the elapsed time.
// A run with no images divides by one.
func NewRunSummary(total int, elapsed time.Duration) RunSummary {
	secs := elapsed.Seconds()
	if secs < 0 {
		secs = 0
	}
	return RunSummary{
		TotalImages:        total,
		TotalTimeSec:       secs,
		AvgTimePerImageSec: secs / float64(max(total, 1)),
	}
}

// CaptionStyle selects the decoding policy used by the captioner
type CaptionStyle string

const (
	StyleDefault  CaptionStyle = "default"
	StyleCreative CaptionStyle = "creative"
	StyleFactual  CaptionStyle = "factual"
)

// Styles returns every supported caption style
func Styles() []CaptionStyle {
	return []CaptionStyle{StyleDefault, StyleCreative, StyleFactual}
}

// ParseStyle converts a user supplied name into a CaptionStyle
func ParseStyle(s string) (CaptionStyle, error) {
	style := CaptionStyle(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Styles() {
		if style == known {
			return style, nil
		}
	}
	return "", fmt.Errorf("unknown caption style %q (use default, creative or factual)", s)
}

// Decoding holds the generation parameters for a caption style.
// Zero MaxTokens means the model default.
type Decoding struct {
	Beams     int  `json:"beams"`
	MaxTokens int  `json:"max_tokens"`
	Sample    bool `json:"sample"`
	TopK      int  `json:"top_k"`
}

var decodingTable = map[CaptionStyle]Decoding{
	StyleDefault:  {Beams: 1},
	StyleCreative: {Beams: 3, MaxTokens: 30, Sample: true, TopK: 50},
	StyleFactual:  {Beams: 5, MaxTokens: 20},
}

// Decoding returns the decoding parameters for the style; unknown styles get the default policy
func (s CaptionStyle) Decoding() Decoding {
	if d, ok := decodingTable[s]; ok {
		return d
	}
	return decodingTable[StyleDefault]
}

// Deterministic reports whether identical inputs produce identical captions
func (s CaptionStyle) Deterministic() bool {
	return !s.Decoding().Sample
}
