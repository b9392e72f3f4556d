package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassifyStatus verifies the HTTP status to error class mapping shared
// by all adapters.
func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorClass
	}{
		{"unauthorized", 401, `{"error":{"message":"invalid api key"}}`, ClassConfigurationMissing},
		{"forbidden", 403, `{"error":{"message":"permission denied"}}`, ClassConfigurationMissing},
		{"too many requests", 429, `{"error":{"message":"rate limit exceeded"}}`, ClassRateLimited},
		{"content filter in body", 400, `{"error":{"message":"flagged","code":"content_filter"}}`, ClassContentFiltered},
		{"safety status in body", 400, `{"error":{"message":"blocked","status":"SAFETY"}}`, ClassContentFiltered},
		{"server error", 500, `internal error`, ClassUnknown},
		{"bad gateway", 502, ``, ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := classifyStatus("groq", tt.status, []byte(tt.body))
			require.NotNil(t, pe)
			assert.Equal(t, tt.want, pe.Class)
			assert.Equal(t, "groq", pe.Provider)
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

// TestErrorDetail verifies extraction of the provider's own message from
// error bodies, with raw-body fallback and truncation.
func TestErrorDetail(t *testing.T) {
	t.Run("envelope message", func(t *testing.T) {
		detail := errorDetail([]byte(`{"error":{"message":"quota exhausted","type":"rate_limit"}}`))
		assert.Equal(t, "quota exhausted", detail)
	})

	t.Run("raw body fallback", func(t *testing.T) {
		detail := errorDetail([]byte("  plain text error\n"))
		assert.Equal(t, "plain text error", detail)
	})

	t.Run("long body truncated", func(t *testing.T) {
		detail := errorDetail([]byte(strings.Repeat("x", 500)))
		assert.Len(t, detail, 200)
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Equal(t, "", errorDetail(nil))
	})
}

// TestIsClass verifies class matching through wrapping.
func TestIsClass(t *testing.T) {
	pe := newProviderError("gemini", ClassRateLimited, 429, "slow down")

	assert.True(t, IsClass(pe, ClassRateLimited))
	assert.False(t, IsClass(pe, ClassModelWarming))
	assert.True(t, IsClass(fmt.Errorf("call failed: %w", pe), ClassRateLimited))
	assert.False(t, IsClass(nil, ClassRateLimited))
	assert.False(t, IsClass(errors.New("plain"), ClassRateLimited))
}

// TestWrapProviderError verifies that already-classified errors pass through
// unchanged and anything else becomes ClassUnknown.
func TestWrapProviderError(t *testing.T) {
	t.Run("classified passes through", func(t *testing.T) {
		pe := newProviderError("groq", ClassEmptyResponse, 0, "no choices")
		wrapped := wrapProviderError("groq", fmt.Errorf("outer: %w", pe))
		assert.Same(t, pe, wrapped)
	})

	t.Run("plain error becomes unknown", func(t *testing.T) {
		cause := errors.New("connection refused")
		wrapped := wrapProviderError("huggingface", cause)
		assert.Equal(t, ClassUnknown, wrapped.Class)
		assert.Equal(t, "huggingface", wrapped.Provider)
		assert.ErrorIs(t, wrapped, cause)
	})
}

// TestProviderErrorString verifies the error message format with and without
// an HTTP status.
func TestProviderErrorString(t *testing.T) {
	withStatus := newProviderError("groq", ClassRateLimited, 429, "rate limit exceeded")
	assert.Equal(t, "groq: rate_limited (status 429): rate limit exceeded", withStatus.Error())

	withoutStatus := newProviderError("gemini", ClassEmptyResponse, 0, "no candidates")
	assert.Equal(t, "gemini: empty_response: no candidates", withoutStatus.Error())
}

// TestContainsContentFilterMarker verifies safety-refusal detection across
// the provider envelope variants.
func TestContainsContentFilterMarker(t *testing.T) {
	assert.True(t, containsContentFilterMarker([]byte(`{"code":"content_filter"}`)))
	assert.True(t, containsContentFilterMarker([]byte(`the content filter rejected this`)))
	assert.True(t, containsContentFilterMarker([]byte(`{"blockReason":"OTHER"}`)))
	assert.True(t, containsContentFilterMarker([]byte(`{"status":"SAFETY"}`)))
	assert.False(t, containsContentFilterMarker([]byte(`{"error":"internal"}`)))
}
