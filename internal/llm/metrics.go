package llm

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planpilot_provider_requests_total",
		Help: "Provider invocations, labeled by outcome (success or error class).",
	}, []string{"provider", "outcome"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planpilot_provider_request_duration_seconds",
		Help:    "Wall-clock latency of provider calls, including the warm-up retry.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

// InstrumentedProvider decorates an adapter with Prometheus metrics. It
// implements Provider and is otherwise transparent.
type InstrumentedProvider struct {
	inner Provider
}

// Instrument wraps a provider with request counting and latency observation.
func Instrument(p Provider) *InstrumentedProvider {
	return &InstrumentedProvider{inner: p}
}

// Generate delegates to the wrapped adapter and records the outcome.
func (m *InstrumentedProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()
	resp, err := m.inner.Generate(ctx, req)
	providerDuration.WithLabelValues(m.inner.Name()).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = string(ClassUnknown)
		var pe *ProviderError
		if errors.As(err, &pe) {
			outcome = string(pe.Class)
		}
	}
	providerRequests.WithLabelValues(m.inner.Name(), outcome).Inc()

	return resp, err
}

// Name returns the wrapped adapter's identifier.
func (m *InstrumentedProvider) Name() string {
	return m.inner.Name()
}

// Available reports the wrapped adapter's availability.
func (m *InstrumentedProvider) Available() bool {
	return m.inner.Available()
}

// Unwrap returns the underlying adapter.
func (m *InstrumentedProvider) Unwrap() Provider {
	return m.inner
}
