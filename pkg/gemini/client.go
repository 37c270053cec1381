// Package gemini captions images with Google Gemini models.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/menta2k/image-captioner/pkg/types"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// Client wraps the genai client
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini API client. An empty apiKey lets genai read GOOGLE_API_KEY / GEMINI_API_KEY.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{client: client}, nil
}

// Caption asks the model for a caption of the image
func (c *Client) Caption(ctx context.Context, model, prompt, imgB64 string, d types.Decoding) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mime),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, GenerateConfig(d))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// Check verifies the API key and model name
func (c *Client) Check(ctx context.Context, model string) error {
	if _, err := c.client.Models.Get(ctx, model, nil); err != nil {
		return fmt.Errorf("gemini model %q unavailable: %w", model, err)
	}
	return nil
}

// GenerateConfig translates decoding parameters into a genai request config.
// Thinking is disabled so short token limits go to the caption itself.
func GenerateConfig(d types.Decoding) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	if d.Sample {
		cfg.Temperature = genai.Ptr[float32](1)
		if d.TopK > 0 {
			cfg.TopK = genai.Ptr(float32(d.TopK))
		}
	} else {
		cfg.Temperature = genai.Ptr[float32](0)
	}
	if d.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(d.MaxTokens)
	}
	return cfg
}
