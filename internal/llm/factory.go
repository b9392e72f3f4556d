package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/jmarlow/planpilot/internal/config"
)

// credentialEnvVars maps each provider to the environment variable its API
// key is read from when the config file leaves the key blank.
var credentialEnvVars = map[string]string{
	"groq":        "GROQ_API_KEY",
	"gemini":      "GEMINI_API_KEY",
	"huggingface": "HF_API_KEY",
}

// CredentialFromEnv retrieves the API key for a provider from its standard
// environment variable. Returns the empty string for unknown providers.
func CredentialFromEnv(name string) string {
	if envVar, ok := credentialEnvVars[name]; ok {
		return os.Getenv(envVar)
	}
	return ""
}

// NewProviderByName creates a specific adapter by name. Every adapter is
// wrapped with request counting and latency tracking.
func NewProviderByName(name string, cfg *ProviderConfig) (Provider, error) {
	var provider Provider

	switch name {
	case config.ProviderGroq:
		provider = NewGroqProvider(cfg)
	case config.ProviderGemini:
		provider = NewGeminiProvider(cfg)
	case config.ProviderHuggingFace:
		provider = NewHuggingFaceProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return Instrument(provider), nil
}

// FromServiceConfig builds the full provider fleet in the fixed default
// order. Providers with no credential are still constructed; they report
// Available() == false and fail fast when called.
func FromServiceConfig(cfg *config.Config) ([]Provider, error) {
	names := config.DefaultProviderOrder()
	providers := make([]Provider, 0, len(names))

	for _, name := range names {
		providerCfg := cfg.Provider(name)

		// Config file key wins; environment variable is the fallback.
		apiKey := providerCfg.APIKey
		if apiKey == "" {
			apiKey = CredentialFromEnv(name)
		}

		llmCfg := &ProviderConfig{
			Name:     name,
			Endpoint: providerCfg.Endpoint,
			APIKey:   apiKey,
			Model:    providerCfg.Model,
			Timeout:  time.Duration(providerCfg.TimeoutSec) * time.Second,
		}

		provider, err := NewProviderByName(name, llmCfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	return providers, nil
}

// AvailableProviders returns the names of providers whose credentials are
// configured, in the fixed default order.
func AvailableProviders(cfg *config.Config) []string {
	providers, err := FromServiceConfig(cfg)
	if err != nil {
		return nil
	}

	var available []string
	for _, p := range providers {
		if p.Available() {
			available = append(available, p.Name())
		}
	}
	return available
}
