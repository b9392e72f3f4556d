package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarlow/planpilot/internal/analysis"
	"github.com/jmarlow/planpilot/internal/config"
	"github.com/jmarlow/planpilot/internal/llm"
	"github.com/jmarlow/planpilot/internal/orchestrator"
)

// scriptedProvider stands in for a real adapter in API tests.
type scriptedProvider struct {
	name      string
	text      string
	err       error
	available bool
}

func (p *scriptedProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerateResponse{Text: p.text, Provider: p.name, Model: "scripted"}, nil
}

func (p *scriptedProvider) Name() string    { return p.name }
func (p *scriptedProvider) Available() bool { return p.available }

// newTestServer wires the full stack over scripted providers and serves it
// from an httptest listener.
func newTestServer(t *testing.T, providers ...llm.Provider) *httptest.Server {
	t.Helper()

	orch := orchestrator.New(providers, "", nil)
	engine := analysis.NewEngine(orch, nil)
	srv := New(config.Default(), engine, orch, "test", nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func answering(name, text string) *scriptedProvider {
	return &scriptedProvider{name: name, text: text, available: true}
}

func failing(name string) *scriptedProvider {
	return &scriptedProvider{name: name, err: errors.New("scripted failure"), available: false}
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestFeasibilityEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq", "- lighten monday\n- move one task"))

	resp := postJSON(t, ts.URL+"/v1/analysis/feasibility", `{
		"tasks": [
			{"name": "thesis chapter", "day": "monday", "points": 9},
			{"name": "gym", "day": "tuesday"}
		],
		"mood": "tired"
	}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var result analysis.FeasibilityResult
	decodeBody(t, resp, &result)

	// One heavy day keeps the week feasible but still gets the elaboration.
	assert.True(t, result.Feasible)
	assert.Equal(t, []string{"monday"}, result.HeavyDays)
	assert.Equal(t, "- lighten monday\n- move one task", result.Analysis)
	assert.Equal(t, []string{"lighten monday", "move one task"}, result.Suggestions)
	assert.False(t, result.FallbackMode)
}

func TestFeasibilityEndpointEmptyTasks(t *testing.T) {
	ts := newTestServer(t, answering("groq", "unused"))

	resp := postJSON(t, ts.URL+"/v1/analysis/feasibility", `{"tasks": []}`)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "no tasks supplied", body.Error)
}

func TestFeasibilityEndpointBadJSON(t *testing.T) {
	ts := newTestServer(t, answering("groq", "unused"))

	resp := postJSON(t, ts.URL+"/v1/analysis/feasibility", `{"tasks": [`)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Error, "invalid request body")
}

func TestAnalysisEndpointsRejectWrongMethod(t *testing.T) {
	ts := newTestServer(t, answering("groq", "unused"))

	for _, path := range []string{
		"/v1/analysis/feasibility",
		"/v1/analysis/downgrade",
		"/v1/analysis/overthinking",
		"/v1/analysis/reflection",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}
}

func TestDowngradeEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq", "Try a shorter session tonight."))

	resp := postJSON(t, ts.URL+"/v1/analysis/downgrade", `{
		"taskName": "morning run",
		"difficulty": "hard",
		"missedCount": 2
	}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result analysis.DowngradeResult
	decodeBody(t, resp, &result)

	assert.True(t, result.ShouldDowngrade)
	assert.Equal(t, "take a 15-minute walk instead", result.RuleBased)
	assert.Equal(t, "Try a shorter session tonight.", result.AIAlternative)
	assert.False(t, result.FallbackMode)
}

func TestOverthinkingEndpointFullOutage(t *testing.T) {
	ts := newTestServer(t, failing("groq"), failing("gemini"), failing("huggingface"))

	resp := postJSON(t, ts.URL+"/v1/analysis/overthinking", `{
		"editCount": 10,
		"daysInactive": 0
	}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result analysis.OverthinkingResult
	decodeBody(t, resp, &result)

	assert.True(t, result.Triggered)
	assert.Equal(t, analysis.SeverityCritical, result.Severity)
	assert.True(t, result.FallbackMode)
	assert.True(t, strings.HasPrefix(result.Message, "STOP PLANNING"), "got %q", result.Message)
}

func TestReflectionEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq",
		"What went well:\n- steady mornings\nWhat went wrong:\n- lost evenings\nPossible reasons:\n- overbooked\nSuggestions:\n- one free evening"))

	resp := postJSON(t, ts.URL+"/v1/analysis/reflection", `{"lines": ["completed 5 of 8 tasks"]}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result analysis.ReflectionResult
	decodeBody(t, resp, &result)

	assert.Equal(t, []string{"steady mornings"}, result.WhatWentWell)
	assert.Equal(t, []string{"lost evenings"}, result.WhatWentWrong)
	assert.Equal(t, []string{"overbooked"}, result.PossibleReasons)
	assert.Equal(t, []string{"one free evening"}, result.Suggestions)
	assert.False(t, result.FallbackMode)
}

func TestProvidersEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq", "hi"), failing("huggingface"))

	resp, err := http.Get(ts.URL + "/v1/providers")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body providersResponse
	decodeBody(t, resp, &body)

	require.Len(t, body.Providers, 2)
	assert.Equal(t, "groq", body.Providers[0].Name)
	assert.True(t, body.Providers[0].Available)
	assert.Equal(t, "huggingface", body.Providers[1].Name)
	assert.False(t, body.Providers[1].Available)
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq", "hi"))

	resp, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statusResponse
	decodeBody(t, resp, &body)

	assert.Equal(t, "test", body.Version)
	assert.NotEmpty(t, body.Uptime)
	require.Len(t, body.Providers, 1)
	assert.Equal(t, "groq", body.Providers[0].Name)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq", "hi"))

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, answering("groq", "hi"))

	// One real call so the HTTP counters have a child to expose.
	resp := postJSON(t, ts.URL+"/v1/analysis/overthinking", `{"editCount": 0, "daysInactive": 0}`)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(raw), "planpilot_http_requests_total")
}

func TestRequestIDPreserved(t *testing.T) {
	ts := newTestServer(t, answering("groq", "hi"))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-me-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "trace-me-123", resp.Header.Get("X-Request-ID"))
}
