// Package orchestrator coordinates the provider adapters behind a single
// call surface. Callers never pick a provider: every request walks the
// provider order and the first success wins.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmarlow/planpilot/internal/llm"
	"github.com/jmarlow/planpilot/internal/logging"
)

// ErrAllProvidersUnavailable is the single failure the orchestrator surfaces
// when every provider in the order has failed. Individual provider failures
// are logged with their class but never leak to the caller.
var ErrAllProvidersUnavailable = errors.New("all providers unavailable")

// exhaustedCalls counts calls that fell through the whole provider order.
var exhaustedCalls = promauto.NewCounter(prometheus.CounterOpts{
	Name: "planpilot_orchestrator_exhausted_total",
	Help: "Calls for which every provider in the order failed.",
})

// structuredSuffix is appended to every structured call so answers come back
// as plain dash bullets the response parser can split line by line.
const structuredSuffix = "\n\nFormat your answer as a list of concise bullet points. " +
	"Put each point on its own line starting with \"- \" and use no other markup."

// ═══════════════════════════════════════════════════════════════════════════════
// ORCHESTRATOR
// ═══════════════════════════════════════════════════════════════════════════════

// Orchestrator holds the provider fleet in call order. The order is fixed at
// construction: fastest and cheapest first, with an optional preferred
// provider moved to the front. Each provider appears exactly once, so a
// single call never retries the same provider (the warm-up retry inside the
// community adapter is the one deliberate exception, and it lives there).
//
// The orchestrator keeps no state between calls and is safe for concurrent
// use.
type Orchestrator struct {
	providers []llm.Provider
	log       *logging.Logger
}

// ProviderStatus reports one provider's position and availability.
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// New builds an orchestrator over the given fleet. preferred optionally names
// a provider to try first; an unknown name keeps the default order and logs a
// warning rather than failing startup.
func New(providers []llm.Provider, preferred string, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Global()
	}
	log = log.WithComponent("Orchestrator")

	ordered := providers
	if preferred != "" {
		reordered, found := moveToFront(providers, preferred)
		if found {
			ordered = reordered
			log.Info("Preferred provider %s moved to front of call order", preferred)
		} else {
			log.Warn("Unknown preferred provider %q, keeping default order", preferred)
		}
	}

	return &Orchestrator{
		providers: ordered,
		log:       log,
	}
}

// moveToFront returns a copy of providers with the named provider first and
// the rest in their original relative order.
func moveToFront(providers []llm.Provider, name string) ([]llm.Provider, bool) {
	idx := -1
	for i, p := range providers {
		if p.Name() == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return providers, false
	}

	ordered := make([]llm.Provider, 0, len(providers))
	ordered = append(ordered, providers[idx])
	for i, p := range providers {
		if i != idx {
			ordered = append(ordered, p)
		}
	}
	return ordered, true
}

// ═══════════════════════════════════════════════════════════════════════════════
// CALL SURFACE
// ═══════════════════════════════════════════════════════════════════════════════

// Call sends the prompt down the provider order and returns the first
// successful text unchanged. When every provider fails it returns
// ErrAllProvidersUnavailable; the per-provider failures are in the log, not
// the error.
func (o *Orchestrator) Call(ctx context.Context, prompt string, maxTokens int) (string, error) {
	callID := shortID()
	req := &llm.GenerateRequest{Prompt: prompt, MaxTokens: maxTokens}

	for _, provider := range o.providers {
		start := time.Now()
		resp, err := provider.Generate(ctx, req)
		if err != nil {
			o.log.Warn("call %s: %s failed: %v", callID, provider.Name(), err)
			continue
		}

		o.log.Info("call %s: %s answered in %s", callID, provider.Name(), time.Since(start).Round(time.Millisecond))
		return resp.Text, nil
	}

	exhaustedCalls.Inc()
	o.log.Error("call %s: exhausted all %d providers", callID, len(o.providers))
	return "", fmt.Errorf("%w (%d providers tried)", ErrAllProvidersUnavailable, len(o.providers))
}

// CallStructured is Call with a fixed formatting instruction appended, for
// callers that will split the answer into bullet items.
func (o *Orchestrator) CallStructured(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return o.Call(ctx, prompt+structuredSuffix, maxTokens)
}

// Status reports every provider in call order with its availability.
func (o *Orchestrator) Status() []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(o.providers))
	for _, p := range o.providers {
		statuses = append(statuses, ProviderStatus{
			Name:      p.Name(),
			Available: p.Available(),
		})
	}
	return statuses
}

// shortID returns a compact call identifier for log correlation.
func shortID() string {
	return uuid.NewString()[:8]
}
