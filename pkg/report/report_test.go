package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/image-captioner/pkg/types"
)

var sampleRecords = []types.ImageRecord{
	{Filename: "cat.png", Caption: "a cat, sat! on a mat.", Hashtags: []string{"#a", "#cat", "#sat", "#on", "#a"}},
	{Filename: "dog & bone.jpg", Caption: `a dog with a "bone"`, Hashtags: []string{"#a", "#dog", "#with", "#a"}},
	{Filename: "blank.jpeg", Caption: "...", Hashtags: []string{}},
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.csv")
	if err := WriteCSV(sampleRecords, path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"filename,caption,hashtags",
		`cat.png,"a cat, sat! on a mat.","#a, #cat, #sat, #on, #a"`,
		`dog & bone.jpg,"a dog with a ""bone""","#a, #dog, #with, #a"`,
		"blank.jpeg,...,",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.csv")
	if err := os.WriteFile(path, []byte(strings.Repeat("stale data\n", 100)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteCSV(nil, path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "filename,caption,hashtags\n" {
		t.Errorf("Expected header only, got %q", data)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.json")
	if err := WriteJSON(sampleRecords, path); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if diff := cmp.Diff(sampleRecords, got); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	records := []types.ImageRecord{{Filename: "a.png", Caption: "x & y", Hashtags: nil}}
	if err := EncodeJSON(&buf, records); err != nil {
		t.Fatal(err)
	}

	want := `[
    {
        "filename": "a.png",
        "caption": "x & y",
        "hashtags": []
    }
]
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("Expected empty array, got %q", buf.String())
	}
}

func TestWriteErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "captions.json")

	err := WriteJSON(sampleRecords, path)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Expected WriteError, got %T: %v", err, err)
	}
	if we.Path != path {
		t.Errorf("Expected path %s, got %s", path, we.Path)
	}

	if err := WriteCSV(sampleRecords, path); !errors.As(err, &we) {
		t.Errorf("Expected WriteError from CSV, got %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	s := types.RunSummary{TotalImages: 3, TotalTimeSec: 4.56789, AvgTimePerImageSec: 1.52263}
	if err := PrintSummary(&buf, s); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\n📊 Summary:\n") {
		t.Errorf("Missing summary header: %q", out)
	}

	var got map[string]float64
	if err := json.Unmarshal([]byte(strings.TrimPrefix(out, "\n📊 Summary:\n")), &got); err != nil {
		t.Fatalf("Summary is not JSON: %v", err)
	}
	want := map[string]float64{"total_images": 3, "total_time_sec": 4.57, "avg_time_per_image_sec": 1.52}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "\n    \"total_images\": 3,") {
		t.Errorf("Expected 4-space indentation, got %q", out)
	}
}
