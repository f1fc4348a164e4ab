package vision

import (
	"ai-plantcare-be/pkg/llm"
	"context"
)

// Image is a raw image payload plus its MIME type (e.g. "image/jpeg").
type Image struct {
	Data     []byte
	MIMEType string
}

// VisionProvider answers a text prompt about an image.
type VisionProvider interface {
	Analyze(ctx context.Context, prompt string, img Image, opts ...llm.Option) (string, error)
}
