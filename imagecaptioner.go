// Package imagecaptioner captions images with a local or hosted vision-language model,
// suggests hashtags from the caption and draws the caption onto a copy of the image.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		imagecaptioner "github.com/menta2k/image-captioner"
//		"github.com/menta2k/image-captioner/pkg/ollama"
//		"github.com/menta2k/image-captioner/pkg/types"
//	)
//
//	func main() {
//		client, err := ollama.NewClient("http://localhost:11434")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ic, err := imagecaptioner.New(client, imagecaptioner.DefaultConfig("llava"))
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		rec, err := ic.CaptionFile(context.Background(), "photo.jpg", types.StyleCreative)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(rec.Caption, rec.Hashtags)
//	}
//
// The package ties together the building blocks under pkg/:
//
// 1. Caption (pkg/caption): prompt selection, image normalization and caption cleanup
// 2. Hashtags (pkg/hashtags): hashtag suggestions from caption words
// 3. Annotate (pkg/annotate): caption overlay on a copy of the image
// 4. Batch (pkg/batch): directory runs with CSV/JSON reports and timing
//
// Backends live in pkg/ollama, pkg/llamacpp and pkg/gemini and all satisfy client.VisionClient.
package imagecaptioner

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/image-captioner/pkg/annotate"
	"github.com/menta2k/image-captioner/pkg/batch"
	"github.com/menta2k/image-captioner/pkg/caption"
	"github.com/menta2k/image-captioner/pkg/client"
	"github.com/menta2k/image-captioner/pkg/hashtags"
	"github.com/menta2k/image-captioner/pkg/processing"
	"github.com/menta2k/image-captioner/pkg/types"
)

// Version of the image captioner library
const Version = "1.0.0"

// Config groups the settings of every component
type Config struct {
	Caption     caption.Options
	Annotate    annotate.Options
	JPEGQuality int
}

// DefaultConfig returns the default settings for a model
func DefaultConfig(model string) Config {
	return Config{
		Caption:     caption.DefaultOptions(model),
		Annotate:    annotate.DefaultOptions(),
		JPEGQuality: 95,
	}
}

// ImageCaptioner provides a high-level interface for captioning images
type ImageCaptioner struct {
	processor *processing.Processor
	generator *caption.Generator
	annotator *annotate.Annotator
	batch     *batch.Orchestrator
}

// New creates an ImageCaptioner around a vision client
func New(vc client.VisionClient, cfg Config) (*ImageCaptioner, error) {
	processor := processing.NewProcessorWithQuality(cfg.JPEGQuality)

	annotator, err := annotate.New(cfg.Annotate)
	if err != nil {
		return nil, fmt.Errorf("annotator: %w", err)
	}

	generator := caption.NewGenerator(vc, processor, cfg.Caption)

	return &ImageCaptioner{
		processor: processor,
		generator: generator,
		annotator: annotator,
		batch:     batch.New(generator, annotator, processor),
	}, nil
}

// Check verifies the backend can serve the configured model
func (ic *ImageCaptioner) Check(ctx context.Context) error {
	return ic.generator.Check(ctx)
}

// LoadImage loads an image file as RGB
func (ic *ImageCaptioner) LoadImage(path string) (*image.NRGBA, error) {
	return ic.processor.LoadImage(path)
}

// SaveImage saves an image, picking the encoder from the file extension
func (ic *ImageCaptioner) SaveImage(img image.Image, path string) error {
	return ic.processor.SaveImage(img, path)
}

// Caption generates a caption for an image
func (ic *ImageCaptioner) Caption(ctx context.Context, img image.Image, style types.CaptionStyle) (string, error) {
	return ic.generator.Caption(ctx, img, style)
}

// CaptionImage returns the caption and its hashtag suggestions
func (ic *ImageCaptioner) CaptionImage(ctx context.Context, img image.Image, style types.CaptionStyle) (string, []string, error) {
	text, err := ic.generator.Caption(ctx, img, style)
	if err != nil {
		return "", nil, err
	}
	return text, hashtags.Suggest(text), nil
}

// CaptionFile loads and captions a single file
func (ic *ImageCaptioner) CaptionFile(ctx context.Context, path string, style types.CaptionStyle) (types.ImageRecord, error) {
	img, err := ic.processor.LoadImage(path)
	if err != nil {
		return types.ImageRecord{}, err
	}
	text, tags, err := ic.CaptionImage(ctx, img, style)
	if err != nil {
		return types.ImageRecord{}, err
	}
	return types.ImageRecord{Filename: path, Caption: text, Hashtags: tags}, nil
}

// Describe returns the caption followed by its hashtags, ready for display
func (ic *ImageCaptioner) Describe(ctx context.Context, img image.Image, style types.CaptionStyle) (string, error) {
	text, tags, err := ic.CaptionImage(ctx, img, style)
	if err != nil {
		return "", err
	}
	return hashtags.Render(text, tags), nil
}

// Annotate returns a copy of img with the caption drawn on it
func (ic *ImageCaptioner) Annotate(img image.Image, text string) *image.NRGBA {
	return ic.annotator.Overlay(img, text)
}

// ProcessDirectory runs the batch pipeline and writes the reports
func (ic *ImageCaptioner) ProcessDirectory(ctx context.Context, opts batch.Options) (*batch.Result, error) {
	return ic.batch.Run(ctx, opts)
}

// Batch exposes the underlying orchestrator for further setup
func (ic *ImageCaptioner) Batch() *batch.Orchestrator {
	return ic.batch
}

// Processor exposes the image processor
func (ic *ImageCaptioner) Processor() *processing.Processor {
	return ic.processor
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
