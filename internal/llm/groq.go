package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// GroqProvider is the fast-inference adapter. Groq serves an OpenAI-compatible
// chat API with sub-second latency, which makes it the default first choice
// in the orchestration order.
type GroqProvider struct {
	baseProvider
}

// NewGroqProvider creates a new Groq adapter.
func NewGroqProvider(cfg *ProviderConfig) *GroqProvider {
	return &GroqProvider{
		baseProvider: newBaseProvider(cfg, "groq"),
	}
}

// Generate sends the prompt as a single-message chat completion and extracts
// the first choice's message content.
func (p *GroqProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := p.requireCredential(); err != nil {
		return nil, err
	}

	start := time.Now()

	groqReq := groqChatRequest{
		Model: p.config.Model,
		Messages: []groqMessage{
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: SamplingTemperature,
		TopP:        SamplingTopP,
	}

	body, err := json.Marshal(groqReq)
	if err != nil {
		return nil, wrapProviderError("groq", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, wrapProviderError("groq", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wrapProviderError("groq", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, classifyStatus("groq", resp.StatusCode, errBody)
	}

	var groqResp groqChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return nil, wrapProviderError("groq", err)
	}

	if len(groqResp.Choices) == 0 {
		return nil, newProviderError("groq", ClassEmptyResponse, 0, "no choices in response")
	}

	choice := groqResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, newProviderError("groq", ClassContentFiltered, 0, "completion stopped by content filter")
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, newProviderError("groq", ClassEmptyResponse, 0, "blank message content")
	}

	return &GenerateResponse{
		Text:       text,
		Provider:   "groq",
		Model:      groqResp.Model,
		TokensUsed: groqResp.Usage.TotalTokens,
		Duration:   time.Since(start),
	}, nil
}

// Groq API types (OpenAI-compatible)
type groqChatRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      groqMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
