// Package batch captions every image in a directory, writes annotated copies and
// produces CSV/JSON reports.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"

	"github.com/menta2k/image-captioner/internal/utils"
	"github.com/menta2k/image-captioner/pkg/annotate"
	"github.com/menta2k/image-captioner/pkg/hashtags"
	"github.com/menta2k/image-captioner/pkg/processing"
	"github.com/menta2k/image-captioner/pkg/report"
	"github.com/menta2k/image-captioner/pkg/types"
)

// Captioner generates one caption for an image
type Captioner interface {
	Caption(ctx context.Context, img image.Image, style types.CaptionStyle) (string, error)
}

// MetadataWriter embeds a record into a written image file
type MetadataWriter interface {
	Write(path string, rec types.ImageRecord) error
}

// Options describes one batch run
type Options struct {
	InputDir   string
	OutputDir  string
	CSVFile    string
	JSONFile   string
	Style      types.CaptionStyle
	Extensions []string // defaults to .jpg, .jpeg, .png
}

// Result holds the outcome of a batch run
type Result struct {
	Records []types.ImageRecord
	Failed  []string // files that could not be decoded
	Skipped int      // entries without an image extension
	Summary types.RunSummary
}

// Orchestrator runs the caption pipeline over a directory, one image at a time
type Orchestrator struct {
	captioner  Captioner
	annotator  *annotate.Annotator
	processor  *processing.Processor
	metadata   MetadataWriter
	extensions []string
	now        func() time.Time
}

// New creates an orchestrator from its collaborators
func New(captioner Captioner, annotator *annotate.Annotator, processor *processing.Processor) *Orchestrator {
	return &Orchestrator{
		captioner:  captioner,
		annotator:  annotator,
		processor:  processor,
		extensions: utils.DefaultImageExtensions,
		now:        time.Now,
	}
}

// SetMetadataWriter enables embedding captions into annotated copies
func (o *Orchestrator) SetMetadataWriter(m MetadataWriter) {
	o.metadata = m
}

// SetExtensions replaces the list of accepted file suffixes
func (o *Orchestrator) SetExtensions(exts []string) {
	if len(exts) > 0 {
		o.extensions = exts
	}
}

// ProcessImages captions every image in inputDir and writes annotated copies under
// outputDir with the same file names. Files that fail to decode are logged and skipped;
// any other error stops the run. Timing covers the image loop only.
func (o *Orchestrator) ProcessImages(ctx context.Context, inputDir, outputDir string, style types.CaptionStyle) (*Result, error) {
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	entries, err := utils.ListDir(inputDir)
	if err != nil {
		return nil, err
	}

	res := &Result{Records: []types.ImageRecord{}}
	start := o.now()

	for _, e := range entries {
		if !utils.HasExtension(e.Name, o.extensions) {
			klog.V(1).Infof("skipping %s", e.Name)
			res.Skipped++
			continue
		}

		rec, err := o.processOne(ctx, e, outputDir, style)
		if err != nil {
			var de *processing.DecodeError
			if errors.As(err, &de) {
				klog.Warningf("✗ %s is not a valid image: %v", e.Name, de.Err)
				res.Failed = append(res.Failed, e.Name)
				continue
			}
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}

		res.Records = append(res.Records, rec)
		klog.Infof("✓ %s | %s", rec.Filename, rec.Caption)
	}

	res.Summary = types.NewRunSummary(len(res.Records), o.now().Sub(start))
	return res, nil
}

func (o *Orchestrator) processOne(ctx context.Context, e utils.Entry, outputDir string, style types.CaptionStyle) (types.ImageRecord, error) {
	img, err := o.processor.LoadImage(e.Path)
	if err != nil {
		return types.ImageRecord{}, err
	}

	caption, err := o.captioner.Caption(ctx, img, style)
	if err != nil {
		return types.ImageRecord{}, err
	}

	rec := types.ImageRecord{
		Filename: e.Name,
		Caption:  caption,
		Hashtags: hashtags.Suggest(caption),
	}

	outPath := filepath.Join(outputDir, e.Name)
	if err := o.processor.SaveImage(o.annotator.Overlay(img, caption), outPath); err != nil {
		return types.ImageRecord{}, fmt.Errorf("save annotated image: %w", err)
	}

	if o.metadata != nil {
		if err := o.metadata.Write(outPath, rec); err != nil {
			klog.Errorf("metadata for %s: %v", outPath, err)
		}
	}

	return rec, nil
}

// Run processes the input directory and then writes the CSV and JSON reports.
// A report write failure is returned after the annotated images are already on disk.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Style == "" {
		opts.Style = types.StyleCreative
	}
	o.SetExtensions(opts.Extensions)

	res, err := o.ProcessImages(ctx, opts.InputDir, opts.OutputDir, opts.Style)
	if err != nil {
		return nil, err
	}

	if err := report.WriteCSV(res.Records, opts.CSVFile); err != nil {
		return res, err
	}
	if err := report.WriteJSON(res.Records, opts.JSONFile); err != nil {
		return res, err
	}

	klog.V(1).Infof("wrote %s and %s", opts.CSVFile, opts.JSONFile)
	return res, nil
}
