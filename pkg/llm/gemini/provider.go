package gemini

import (
	"ai-plantcare-be/pkg/llm"
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client    *genai.Client
	ModelName string
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.NewProviderError("gemini", llm.KindInvalid, "api key is required", nil)
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, llm.NewProviderError("gemini", llm.KindInvalid, "create client", err)
	}

	return &GeminiProvider{
		client:    client,
		ModelName: modelName,
	}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{
		Temperature: 0.7,
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

	// System messages become the system instruction, the rest the chat turns.
	var systemParts []string
	var turns []llm.Message
	for _, msg := range history {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	if len(systemParts) > 0 {
		model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(systemParts, "\n\n")))
	}
	if len(turns) == 0 {
		return "", llm.NewProviderError("gemini", llm.KindInvalid, "chat requires at least one non-system message", nil)
	}

	cs := model.StartChat()
	for _, msg := range turns[:len(turns)-1] {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		return "", classify("chat request failed", err)
	}

	return extractText(resp)
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", llm.NewProviderError("gemini", llm.KindPolicy, "prompt blocked: "+resp.PromptFeedback.BlockReason.String(), nil)
	}
	if len(resp.Candidates) == 0 {
		return "", llm.NewProviderError("gemini", llm.KindTransient, "no candidates returned", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", llm.NewProviderError("gemini", llm.KindPolicy, "response blocked by safety filter", nil)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", llm.NewProviderError("gemini", llm.KindTransient, "empty content", nil)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func classify(message string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return llm.NewProviderError("gemini", llm.ClassifyHTTPStatus(apiErr.Code), message, err)
	}
	return llm.NewProviderError("gemini", llm.ClassifyTransportError(err), message, err)
}
