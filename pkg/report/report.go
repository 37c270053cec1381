// Package report serializes caption records to CSV and JSON and prints run summaries.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/menta2k/image-captioner/pkg/types"
)

// CSVHeader is the first row of every CSV report
var CSVHeader = []string{"filename", "caption", "hashtags"}

// HashtagSeparator joins hashtags into a single CSV cell
const HashtagSeparator = ", "

// WriteError reports a report file that could not be written
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteCSV writes records to path, replacing any existing file
func WriteCSV(records []types.ImageRecord, path string) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// EncodeCSV writes the CSV form of records to w
func EncodeCSV(w io.Writer, records []types.ImageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Filename, r.Caption, strings.Join(r.Hashtags, HashtagSeparator)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records to path as an indented JSON array, replacing any existing file
func WriteJSON(records []types.ImageRecord, path string) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, records); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// EncodeJSON writes the JSON form of records to w
func EncodeJSON(w io.Writer, records []types.ImageRecord) error {
	out := make([]types.ImageRecord, len(records))
	for i, r := range records {
		if r.Hashtags == nil {
			r.Hashtags = []string{}
		}
		out[i] = r
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(out)
}

// ReadJSON loads records previously written by WriteJSON
func ReadJSON(path string) ([]types.ImageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var records []types.ImageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return records, nil
}

// PrintSummary writes a header line and the summary as indented JSON, rounded to 2 decimals
func PrintSummary(w io.Writer, s types.RunSummary) error {
	rounded := types.RunSummary{
		TotalImages:        s.TotalImages,
		TotalTimeSec:       round2(s.TotalTimeSec),
		AvgTimePerImageSec: round2(s.AvgTimePerImageSec),
	}

	js, err := json.MarshalIndent(rounded, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n📊 Summary:\n%s\n", js)
	return err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
