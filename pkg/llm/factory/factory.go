package factory

import (
	"ai-plantcare-be/pkg/llm"
	"ai-plantcare-be/pkg/llm/gemini"
	"ai-plantcare-be/pkg/llm/ollama"
	"context"
	"fmt"
)

func NewLLMProvider(ctx context.Context, providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		return gemini.NewGeminiProvider(ctx, apiKey, modelName)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
