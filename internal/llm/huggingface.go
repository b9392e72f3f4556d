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

// HuggingFaceProvider is the community-hosted-model adapter for the Hugging
// Face Inference API. Hosted models unload when idle and report a warm-up
// state while reloading, so this is the one adapter that retries: exactly
// once, after a fixed delay.
type HuggingFaceProvider struct {
	baseProvider

	// warmupWait is how long to suspend before the single warm-up retry.
	// Fixed in production; shortened by tests.
	warmupWait time.Duration
}

// NewHuggingFaceProvider creates a new Hugging Face adapter.
func NewHuggingFaceProvider(cfg *ProviderConfig) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		baseProvider: newBaseProvider(cfg, "huggingface"),
		warmupWait:   warmupDelay,
	}
}

// Generate sends the prompt to the hosted model and extracts the first array
// element's generated_text field. A model-warming failure is retried once
// after the fixed warm-up wait.
func (p *HuggingFaceProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := p.requireCredential(); err != nil {
		return nil, err
	}

	resp, err := retryOnceOnWarming(ctx, p.warmupWait, func() (*GenerateResponse, error) {
		return p.generateOnce(ctx, req)
	})
	if err != nil {
		// Context cancellation during the warm-up wait surfaces here raw.
		return nil, wrapProviderError("huggingface", err)
	}
	return resp, nil
}

func (p *HuggingFaceProvider) generateOnce(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	hfReq := hfGenerateRequest{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			MaxNewTokens:   req.MaxTokens,
			Temperature:    SamplingTemperature,
			TopP:           SamplingTopP,
			ReturnFullText: false,
		},
		// Fail fast with the warming envelope instead of blocking server-side;
		// the retry policy owns the wait.
		Options: hfOptions{WaitForModel: false},
	}

	body, err := json.Marshal(hfReq)
	if err != nil {
		return nil, wrapProviderError("huggingface", err)
	}

	url := fmt.Sprintf("%s/models/%s", p.config.Endpoint, p.config.Model)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, wrapProviderError("huggingface", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, wrapProviderError("huggingface", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		if pe := classifyWarming(resp.StatusCode, errBody); pe != nil {
			return nil, pe
		}
		return nil, classifyStatus("huggingface", resp.StatusCode, errBody)
	}

	var hfResp []hfGenerated
	if err := json.NewDecoder(resp.Body).Decode(&hfResp); err != nil {
		return nil, wrapProviderError("huggingface", err)
	}

	if len(hfResp) == 0 {
		return nil, newProviderError("huggingface", ClassEmptyResponse, 0, "empty generation array")
	}

	text := strings.TrimSpace(hfResp[0].GeneratedText)
	if text == "" {
		return nil, newProviderError("huggingface", ClassEmptyResponse, 0, "blank generated_text")
	}

	return &GenerateResponse{
		Text:     text,
		Provider: "huggingface",
		Model:    p.config.Model,
		Duration: time.Since(start),
	}, nil
}

// classifyWarming recognizes the Inference API's cold-start envelope:
// HTTP 503 with an error message and an estimated_time hint.
func classifyWarming(status int, body []byte) *ProviderError {
	if status != http.StatusServiceUnavailable {
		return nil
	}

	var envelope hfErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.EstimatedTime > 0 || strings.Contains(strings.ToLower(envelope.Error), "loading") {
		return newProviderError("huggingface", ClassModelWarming, status,
			fmt.Sprintf("%s (estimated %.0fs)", envelope.Error, envelope.EstimatedTime))
	}
	return nil
}

// Hugging Face Inference API types
type hfGenerateRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TopP           float64 `json:"top_p,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

type hfErrorEnvelope struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}
