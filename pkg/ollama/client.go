package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-captioner/pkg/types"
)

// greedySeed pins sampling state for styles that must be reproducible
const greedySeed = 42

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	timeout time.Duration
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	// Parse the provided URL
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Create base URL from the provided URL (removing path like /api/chat)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	// Create client with the specified URL, ignoring environment
	client := api.NewClient(baseURL, http.DefaultClient)

	return &Client{client: client, timeout: 300 * time.Second}, nil
}

// SetTimeout changes the per-request deadline applied when the context has none
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Caption asks the model for a caption of the image
func (c *Client) Caption(ctx context.Context, model, prompt, imgB64 string, d types.Decoding) (string, error) {
	// Add timeout if context doesn't have one (CPU inference can be slow)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// Decode base64 image to raw bytes
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &streamFalse,
		Options: Options(d),
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}

	if responseContent == "" {
		return "", fmt.Errorf("empty response from ollama")
	}

	return responseContent, nil
}

// Check verifies the server is up and the model is installed
func (c *Client) Check(ctx context.Context, model string) error {
	if _, err := c.client.Show(ctx, &api.ShowRequest{Model: model}); err != nil {
		return fmt.Errorf("ollama model %q unavailable: %w", model, err)
	}
	return nil
}

// Options translates decoding parameters into Ollama runtime options.
// Ollama has no beam search, so non-sampling styles decode greedily.
func Options(d types.Decoding) map[string]any {
	opts := map[string]any{}
	if d.Sample {
		opts["temperature"] = 1.0
		if d.TopK > 0 {
			opts["top_k"] = d.TopK
		}
	} else {
		opts["temperature"] = 0
		opts["seed"] = greedySeed
	}
	if d.MaxTokens > 0 {
		opts["num_predict"] = d.MaxTokens
	}
	return opts
}
