package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarlow/planpilot/internal/llm"
)

// fakeProvider is a scripted adapter that records how it was called.
type fakeProvider struct {
	name       string
	text       string
	err        error
	available  bool
	calls      int
	lastPrompt string
}

func (f *fakeProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.calls++
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Text: f.text, Provider: f.name}, nil
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func failing(name string, class llm.ErrorClass) *fakeProvider {
	return &fakeProvider{name: name, err: &llm.ProviderError{Provider: name, Class: class, Message: "scripted failure"}}
}

func answering(name, text string) *fakeProvider {
	return &fakeProvider{name: name, text: text, available: true}
}

// TestCallFirstSuccessWins verifies that the first provider's answer is
// returned without touching the rest of the order.
func TestCallFirstSuccessWins(t *testing.T) {
	first := answering("groq", "fast answer")
	second := answering("gemini", "unused")
	third := answering("huggingface", "unused")

	o := New([]llm.Provider{first, second, third}, "", nil)
	text, err := o.Call(context.Background(), "prompt", 100)

	require.NoError(t, err)
	assert.Equal(t, "fast answer", text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
	assert.Equal(t, 0, third.calls)
}

// TestCallFallsThroughToThirdProvider verifies the full fallback walk: two
// failures, then the last provider's answer.
func TestCallFallsThroughToThirdProvider(t *testing.T) {
	first := failing("groq", llm.ClassRateLimited)
	second := failing("gemini", llm.ClassConfigurationMissing)
	third := answering("huggingface", "community answer")

	o := New([]llm.Provider{first, second, third}, "", nil)
	text, err := o.Call(context.Background(), "prompt", 100)

	require.NoError(t, err)
	assert.Equal(t, "community answer", text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

// TestCallAllFail verifies the aggregate failure: one sentinel error, each
// provider tried exactly once, no provider detail in the message.
func TestCallAllFail(t *testing.T) {
	first := failing("groq", llm.ClassRateLimited)
	second := failing("gemini", llm.ClassContentFiltered)
	third := failing("huggingface", llm.ClassModelWarming)

	o := New([]llm.Provider{first, second, third}, "", nil)
	_, err := o.Call(context.Background(), "prompt", 100)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersUnavailable)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)

	// The caller sees the aggregate only, never the per-provider failures.
	for _, detail := range []string{"groq", "gemini", "huggingface", "rate", "filtered", "warming", "scripted"} {
		assert.NotContains(t, strings.ToLower(err.Error()), detail)
	}
}

// TestCallNoProviders verifies the degenerate empty fleet.
func TestCallNoProviders(t *testing.T) {
	o := New(nil, "", nil)
	_, err := o.Call(context.Background(), "prompt", 100)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersUnavailable)
}

// TestPreferredProviderReordersFleet verifies the startup override moves the
// named provider to the front and keeps the rest in relative order.
func TestPreferredProviderReordersFleet(t *testing.T) {
	fleet := []llm.Provider{answering("groq", "a"), answering("gemini", "b"), answering("huggingface", "c")}

	o := New(fleet, "huggingface", nil)

	statuses := o.Status()
	require.Len(t, statuses, 3)
	assert.Equal(t, "huggingface", statuses[0].Name)
	assert.Equal(t, "groq", statuses[1].Name)
	assert.Equal(t, "gemini", statuses[2].Name)

	text, err := o.Call(context.Background(), "prompt", 100)
	require.NoError(t, err)
	assert.Equal(t, "c", text)
}

// TestUnknownPreferredProviderKeepsDefaultOrder verifies that a bad override
// name degrades to the default order instead of failing.
func TestUnknownPreferredProviderKeepsDefaultOrder(t *testing.T) {
	fleet := []llm.Provider{answering("groq", "a"), answering("gemini", "b"), answering("huggingface", "c")}

	o := New(fleet, "claude", nil)

	statuses := o.Status()
	require.Len(t, statuses, 3)
	assert.Equal(t, "groq", statuses[0].Name)
	assert.Equal(t, "gemini", statuses[1].Name)
	assert.Equal(t, "huggingface", statuses[2].Name)
}

// TestCallStructuredAppendsFormattingSuffix verifies the structured variant
// sends the prompt plus the fixed bullet instruction.
func TestCallStructuredAppendsFormattingSuffix(t *testing.T) {
	provider := answering("groq", "- one\n- two")

	o := New([]llm.Provider{provider}, "", nil)
	text, err := o.CallStructured(context.Background(), "list my issues", 100)

	require.NoError(t, err)
	assert.Equal(t, "- one\n- two", text)
	assert.True(t, strings.HasPrefix(provider.lastPrompt, "list my issues"))
	assert.Contains(t, provider.lastPrompt, "bullet points")
	assert.Equal(t, "list my issues"+structuredSuffix, provider.lastPrompt)
}

// TestCallPlainDoesNotAppendSuffix verifies the plain variant sends the
// prompt untouched.
func TestCallPlainDoesNotAppendSuffix(t *testing.T) {
	provider := answering("groq", "answer")

	o := New([]llm.Provider{provider}, "", nil)
	_, err := o.Call(context.Background(), "raw prompt", 100)

	require.NoError(t, err)
	assert.Equal(t, "raw prompt", provider.lastPrompt)
}

// TestStatusReportsAvailability verifies Status reflects each provider's
// credential state in call order.
func TestStatusReportsAvailability(t *testing.T) {
	configured := answering("groq", "a")
	unconfigured := failing("gemini", llm.ClassConfigurationMissing)

	o := New([]llm.Provider{configured, unconfigured}, "", nil)

	statuses := o.Status()
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Available)
	assert.False(t, statuses[1].Available)
}
