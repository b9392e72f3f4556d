package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorClass buckets every adapter failure. The orchestrator treats all
// classes the same (fall through to the next provider); the class exists for
// logging, metrics, and the warm-up retry decision.
type ErrorClass string

const (
	// ClassConfigurationMissing means the provider credential is absent or
	// rejected. Never retried; the provider stays unavailable for the
	// process lifetime.
	ClassConfigurationMissing ErrorClass = "configuration_missing"
	// ClassRateLimited means the provider returned HTTP 429.
	ClassRateLimited ErrorClass = "rate_limited"
	// ClassModelWarming means the hosted model is still loading. Retried
	// exactly once after a fixed delay.
	ClassModelWarming ErrorClass = "model_warming"
	// ClassContentFiltered means the provider refused the prompt or response
	// on safety grounds.
	ClassContentFiltered ErrorClass = "content_filtered"
	// ClassEmptyResponse means the success envelope carried no usable text.
	ClassEmptyResponse ErrorClass = "empty_response"
	// ClassUnknown is any unclassified transport or parse failure.
	ClassUnknown ErrorClass = "unknown"
)

// ProviderError is the classified failure every adapter surfaces. Raw
// transport or envelope errors never cross the adapter boundary unclassified.
type ProviderError struct {
	// Provider is the name of the adapter that produced the failure.
	Provider string
	// Class is the failure classification.
	Class ErrorClass
	// StatusCode is the HTTP status when the failure came off the wire,
	// zero otherwise.
	StatusCode int
	// Message is a short human-readable detail.
	Message string
	// Err is the underlying cause, when one exists.
	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Class, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// newProviderError builds a classified failure without an underlying cause.
func newProviderError(provider string, class ErrorClass, status int, message string) *ProviderError {
	return &ProviderError{Provider: provider, Class: class, StatusCode: status, Message: message}
}

// wrapProviderError classifies an underlying error (transport failure, JSON
// decode, context cancellation) as Unknown unless it is already classified.
func wrapProviderError(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Provider: provider, Class: ClassUnknown, Message: err.Error(), Err: err}
}

// IsClass reports whether err is a ProviderError with the given class.
func IsClass(err error, class ErrorClass) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == class
}

// apiErrorEnvelope covers the error shapes of the OpenAI-compatible and
// Google APIs. Exactly one of the two layouts is populated per response.
type apiErrorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Status  string `json:"status"`
	} `json:"error"`
}

// errorDetail extracts the provider's own message from an error body,
// falling back to the raw body when the envelope does not parse.
func errorDetail(body []byte) string {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}

// classifyStatus maps a non-success HTTP response to an error class common to
// all providers. Provider-specific conditions (warm-up envelopes, safety
// blocks) are handled in the adapters before this fallback runs.
func classifyStatus(provider string, status int, body []byte) *ProviderError {
	detail := errorDetail(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newProviderError(provider, ClassConfigurationMissing, status, detail)
	case status == http.StatusTooManyRequests:
		return newProviderError(provider, ClassRateLimited, status, detail)
	case containsContentFilterMarker(body):
		return newProviderError(provider, ClassContentFiltered, status, detail)
	default:
		return newProviderError(provider, ClassUnknown, status, detail)
	}
}

// containsContentFilterMarker detects safety refusals inside error envelopes.
// The OpenAI-compatible APIs use code "content_filter"; Google reports status
// "SAFETY" or a blockReason.
func containsContentFilterMarker(body []byte) bool {
	lowered := strings.ToLower(string(body))
	return strings.Contains(lowered, "content_filter") ||
		strings.Contains(lowered, "content filter") ||
		strings.Contains(lowered, "blockreason") ||
		strings.Contains(lowered, `"safety"`)
}
