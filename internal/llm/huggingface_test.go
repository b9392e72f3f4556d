package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHFTestProvider(serverURL string) *HuggingFaceProvider {
	provider := NewHuggingFaceProvider(&ProviderConfig{
		Endpoint: serverURL,
		APIKey:   "test-key",
		Model:    "test-model",
	})
	// Production waits 20s before the warm-up retry; tests do not.
	provider.warmupWait = 5 * time.Millisecond
	return provider
}

// TestHuggingFaceGenerate verifies the request shape and extraction of the
// first array element's generated_text.
func TestHuggingFaceGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"inputs":"suggest an easier task"`)
		assert.Contains(t, string(body), `"return_full_text":false`)
		assert.Contains(t, string(body), `"wait_for_model":false`)

		w.Write([]byte(`[{"generated_text": " Try a shorter session. "}]`))
	}))
	defer server.Close()

	provider := newHFTestProvider(server.URL)
	resp, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "suggest an easier task", MaxTokens: 64})

	require.NoError(t, err)
	assert.Equal(t, "Try a shorter session.", resp.Text)
	assert.Equal(t, "huggingface", resp.Provider)
}

// TestHuggingFaceWarmupRetry verifies the cold-start path: one warming
// response, a wait, then one identical retry that succeeds.
func TestHuggingFaceWarmupRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": "Model test-model is currently loading", "estimated_time": 20.0}`))
			return
		}
		w.Write([]byte(`[{"generated_text": "warmed up"}]`))
	}))
	defer server.Close()

	provider := newHFTestProvider(server.URL)
	resp, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "warmed up", resp.Text)
	assert.Equal(t, int32(2), hits.Load())
}

// TestHuggingFaceWarmupGivesUp verifies that a model still warming on the
// retry fails after exactly two requests.
func TestHuggingFaceWarmupGivesUp(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "Model test-model is currently loading", "estimated_time": 20.0}`))
	}))
	defer server.Close()

	provider := newHFTestProvider(server.URL)
	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})

	require.Error(t, err)
	assert.True(t, IsClass(err, ClassModelWarming))
	assert.Equal(t, int32(2), hits.Load())
}

// TestHuggingFaceRateLimitedNoRetry verifies that only warming failures get
// the retry; a 429 fails after a single request.
func TestHuggingFaceRateLimitedNoRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "Rate limit reached"}`))
	}))
	defer server.Close()

	provider := newHFTestProvider(server.URL)
	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})

	require.Error(t, err)
	assert.True(t, IsClass(err, ClassRateLimited))
	assert.Equal(t, int32(1), hits.Load())
}

// TestHuggingFaceMissingCredential verifies the fail-fast check.
func TestHuggingFaceMissingCredential(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	provider := NewHuggingFaceProvider(&ProviderConfig{Endpoint: server.URL, Model: "test-model"})
	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})

	require.Error(t, err)
	assert.True(t, IsClass(err, ClassConfigurationMissing))
	assert.Equal(t, int32(0), hits.Load())
}

// TestHuggingFaceEmptyResponses verifies classification of envelopes with no
// usable text.
func TestHuggingFaceEmptyResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"blank generated_text", `[{"generated_text": "   "}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := newHFTestProvider(server.URL)
			_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})

			require.Error(t, err)
			assert.True(t, IsClass(err, ClassEmptyResponse), "got %v", err)
		})
	}
}

// TestClassifyWarming verifies recognition of the cold-start envelope.
func TestClassifyWarming(t *testing.T) {
	t.Run("estimated time", func(t *testing.T) {
		pe := classifyWarming(503, []byte(`{"error": "unavailable", "estimated_time": 12.5}`))
		require.NotNil(t, pe)
		assert.Equal(t, ClassModelWarming, pe.Class)
	})

	t.Run("loading message", func(t *testing.T) {
		pe := classifyWarming(503, []byte(`{"error": "Model is loading"}`))
		require.NotNil(t, pe)
		assert.Equal(t, ClassModelWarming, pe.Class)
	})

	t.Run("plain 503", func(t *testing.T) {
		assert.Nil(t, classifyWarming(503, []byte(`{"error": "backend unavailable"}`)))
	})

	t.Run("other status", func(t *testing.T) {
		assert.Nil(t, classifyWarming(500, []byte(`{"error": "loading", "estimated_time": 5}`)))
	})
}
