package embedding

import (
	"ai-plantcare-be/pkg/llm"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type geminiRequestPart struct {
	Text string `json:"text"`
}

type geminiRequestContent struct {
	Parts []geminiRequestPart `json:"parts"`
}

type geminiRequest struct {
	Model    string               `json:"model"`
	Content  geminiRequestContent `json:"content"`
	TaskType string               `json:"task_type,omitempty"`
}

// GeminiProvider generates 768-dimensional embeddings via text-embedding-004.
type GeminiProvider struct {
	ApiKey string
	Client *http.Client
}

func NewGeminiProvider(apiKey string) EmbeddingProvider {
	return &GeminiProvider{
		ApiKey: apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *GeminiProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	modelName := "text-embedding-004"

	geminiReq := geminiRequest{
		Model: modelName,
		Content: geminiRequestContent{
			Parts: []geminiRequestPart{
				{
					Text: text,
				},
			},
		},
		TaskType: taskType,
	}
	geminiReqJson, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, llm.NewProviderError("gemini-embedding", llm.KindInvalid, "marshal request", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		modelName,
	)

	req, err := http.NewRequest(
		"POST",
		endpoint,
		bytes.NewBuffer(geminiReqJson),
	)
	if err != nil {
		return nil, llm.NewProviderError("gemini-embedding", llm.KindInvalid, "create request", err)
	}

	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, llm.NewProviderError("gemini-embedding", llm.ClassifyTransportError(err), "embed request failed", err)
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, llm.NewProviderError("gemini-embedding", llm.KindTransient, "read response", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, llm.NewProviderError(
			"gemini-embedding",
			llm.ClassifyHTTPStatus(res.StatusCode),
			fmt.Sprintf("status %d, body %s", res.StatusCode, string(resByte)),
			nil,
		)
	}

	var resEmbedding EmbeddingResponse
	err = json.Unmarshal(resByte, &resEmbedding)
	if err != nil {
		return nil, llm.NewProviderError("gemini-embedding", llm.KindInvalid, "unmarshal response", err)
	}

	return &resEmbedding, nil
}
