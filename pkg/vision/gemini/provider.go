package gemini

import (
	"ai-plantcare-be/pkg/llm"
	"ai-plantcare-be/pkg/vision"
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GeminiVisionProvider struct {
	client    *genai.Client
	ModelName string
}

var _ vision.VisionProvider = &GeminiVisionProvider{}

func NewGeminiVisionProvider(ctx context.Context, apiKey, modelName string) (*GeminiVisionProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.NewProviderError("gemini-vision", llm.KindInvalid, "api key is required", nil)
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, llm.NewProviderError("gemini-vision", llm.KindInvalid, "create client", err)
	}

	return &GeminiVisionProvider{
		client:    client,
		ModelName: modelName,
	}, nil
}

func (p *GeminiVisionProvider) Analyze(ctx context.Context, prompt string, img vision.Image, opts ...llm.Option) (string, error) {
	if len(img.Data) == 0 {
		return "", llm.NewProviderError("gemini-vision", llm.KindInvalid, "empty image payload", nil)
	}

	options := &llm.Options{
		Temperature: 0.2,
	}
	for _, opt := range opts {
		opt(options)
	}

	modelName := p.ModelName
	if options.Model != "" {
		modelName = options.Model
	}

	model := p.client.GenerativeModel(modelName)
	model.SetTemperature(float32(options.Temperature))
	if options.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(options.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(img.MIMEType), img.Data),
		genai.Text(prompt),
	)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", llm.NewProviderError("gemini-vision", llm.ClassifyHTTPStatus(apiErr.Code), "generate failed", err)
		}
		return "", llm.NewProviderError("gemini-vision", llm.ClassifyTransportError(err), "generate failed", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", llm.NewProviderError("gemini-vision", llm.KindPolicy, "prompt blocked: "+resp.PromptFeedback.BlockReason.String(), nil)
	}
	if len(resp.Candidates) == 0 {
		return "", llm.NewProviderError("gemini-vision", llm.KindTransient, "no candidates returned", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", llm.NewProviderError("gemini-vision", llm.KindPolicy, "response blocked by safety filter", nil)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", llm.NewProviderError("gemini-vision", llm.KindTransient, "empty content", nil)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (p *GeminiVisionProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// imageFormat converts a MIME type to the subtype genai expects ("jpeg", "png").
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	if format == "" {
		return "jpeg"
	}
	return format
}
