// Package llm implements the text-generation provider adapters used by
// planpilot: Groq (fast inference), Google Gemini (general purpose), and the
// Hugging Face Inference API (community-hosted models). Each adapter
// translates one provider's wire format into the shared Generate contract and
// classifies every failure before it crosses the package boundary.
package llm

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	// MaxErrorBodySize limits how much error response body we read (1MB).
	// This prevents memory exhaustion from malformed error responses.
	MaxErrorBodySize = 1 * 1024 * 1024

	// SamplingTemperature and SamplingTopP are the fixed sampling parameters
	// sent with every request. They balance moderate creativity against
	// determinism and are not configurable per call.
	SamplingTemperature = 0.7
	SamplingTopP        = 0.9
)

// readLimitedBody reads up to maxBytes from r, returning the bytes read.
func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

// Provider is the single contract every adapter implements. Adapters are
// stateless and safe for concurrent use.
type Provider interface {
	// Generate produces text for a prompt within the output budget, or fails
	// with a *ProviderError.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider identifier.
	Name() string

	// Available reports whether the provider credential is configured.
	Available() bool
}

// GenerateRequest is an opaque prompt plus its output budget. It is immutable
// once built; adapters never modify it.
type GenerateRequest struct {
	// Prompt is the text payload sent to the provider.
	Prompt string
	// MaxTokens bounds the generated output length.
	MaxTokens int
}

// GenerateResponse carries the generated text and which provider produced it.
type GenerateResponse struct {
	// Text is the trimmed, non-empty generated text.
	Text string
	// Provider is the name of the adapter that produced the text.
	Provider string
	// Model is the model identifier that served the request.
	Model string
	// TokensUsed is the provider-reported total token count, zero when the
	// provider does not report usage.
	TokensUsed int
	// Duration is the wall-clock time of the provider call.
	Duration time.Duration
}

// ProviderConfig contains configuration for one adapter.
type ProviderConfig struct {
	// Name identifies the provider (groq, gemini, huggingface).
	Name string

	// Endpoint is the API base URL.
	Endpoint string

	// APIKey for authentication. Empty means the provider is unavailable.
	APIKey string

	// Model is the model identifier sent with every request.
	Model string

	// Timeout for one HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for a provider.
func DefaultConfig(name string) *ProviderConfig {
	switch name {
	case "groq":
		return &ProviderConfig{
			Name:     "groq",
			Endpoint: "https://api.groq.com/openai/v1",
			Model:    "llama-3.3-70b-versatile",
			Timeout:  30 * time.Second,
		}
	case "gemini":
		return &ProviderConfig{
			Name:     "gemini",
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    "gemini-1.5-flash",
			Timeout:  30 * time.Second,
		}
	case "huggingface":
		// Community-hosted models cold-start, so the timeout stays generous.
		return &ProviderConfig{
			Name:     "huggingface",
			Endpoint: "https://api-inference.huggingface.co",
			Model:    "mistralai/Mistral-7B-Instruct-v0.3",
			Timeout:  60 * time.Second,
		}
	default:
		return &ProviderConfig{
			Name:    name,
			Timeout: 30 * time.Second,
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// BASE PROVIDER (DRY helper for the HTTP adapters)
// ═══════════════════════════════════════════════════════════════════════════════

// baseProvider provides common functionality for the HTTP-based adapters.
type baseProvider struct {
	config *ProviderConfig
	client *http.Client
}

// newBaseProvider creates a new base provider with defaults applied.
func newBaseProvider(cfg *ProviderConfig, providerName string) baseProvider {
	if cfg == nil {
		cfg = DefaultConfig(providerName)
	}

	defaults := DefaultConfig(providerName)
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	cfg.Name = providerName

	return baseProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (b *baseProvider) Name() string {
	return b.config.Name
}

// Available checks if the API key is configured.
func (b *baseProvider) Available() bool {
	return b.config.APIKey != ""
}

// requireCredential is the fail-fast credential check every adapter runs
// before touching the network.
func (b *baseProvider) requireCredential() error {
	if b.config.APIKey == "" {
		return newProviderError(b.config.Name, ClassConfigurationMissing, 0, "API key not configured")
	}
	return nil
}
