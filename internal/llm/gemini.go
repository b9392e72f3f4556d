package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GeminiProvider is the general-purpose adapter for Google Gemini.
type GeminiProvider struct {
	baseProvider
}

// NewGeminiProvider creates a new Gemini adapter.
func NewGeminiProvider(cfg *ProviderConfig) *GeminiProvider {
	return &GeminiProvider{
		baseProvider: newBaseProvider(cfg, "gemini"),
	}
}

// Generate sends the prompt as a single user content and extracts the first
// candidate's first content part.
func (p *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := p.requireCredential(); err != nil {
		return nil, err
	}

	start := time.Now()

	geminiReq := geminiGenerateRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     SamplingTemperature,
			TopP:            SamplingTopP,
		},
	}

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, wrapProviderError("gemini", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.config.Endpoint, p.config.Model)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, wrapProviderError("gemini", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// The key goes in a header, not the URL, so it never lands in logs.
	httpReq.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wrapProviderError("gemini", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, classifyStatus("gemini", resp.StatusCode, errBody)
	}

	var geminiResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, wrapProviderError("gemini", err)
	}

	// A blocked prompt returns 200 with promptFeedback set and no candidates.
	if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
		return nil, newProviderError("gemini", ClassContentFiltered, 0,
			"prompt blocked: "+geminiResp.PromptFeedback.BlockReason)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, newProviderError("gemini", ClassEmptyResponse, 0, "no candidates in response")
	}

	candidate := geminiResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return nil, newProviderError("gemini", ClassContentFiltered, 0, "candidate blocked by safety filter")
	}

	if len(candidate.Content.Parts) == 0 {
		return nil, newProviderError("gemini", ClassEmptyResponse, 0, "candidate has no content parts")
	}

	text := strings.TrimSpace(candidate.Content.Parts[0].Text)
	if text == "" {
		return nil, newProviderError("gemini", ClassEmptyResponse, 0, "blank content part")
	}

	usage := geminiResp.UsageMetadata.PromptTokenCount + geminiResp.UsageMetadata.CandidatesTokenCount

	return &GenerateResponse{
		Text:       text,
		Provider:   "gemini",
		Model:      p.config.Model,
		TokensUsed: usage,
		Duration:   time.Since(start),
	}, nil
}

// Gemini API types
type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}
