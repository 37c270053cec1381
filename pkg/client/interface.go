package client

import (
	"context"

	"github.com/menta2k/image-captioner/pkg/types"
)

// VisionClient is a captioning backend. Implementations must be safe for concurrent use.
type VisionClient interface {
	// Caption sends one base64 encoded image with a prompt and returns the raw model text.
	Caption(ctx context.Context, model, prompt, imgB64 string, d types.Decoding) (string, error)

	// Check verifies that the backend is reachable and can serve model.
	Check(ctx context.Context, model string) error
}
