// Package analysis implements the rule engines that judge a student's weekly
// plan: feasibility, task downgrade, the overthinking guard, and the weekly
// reflection. Every engine runs a deterministic phase first and only then,
// when the numbers justify it, asks a provider to elaborate. A provider
// outage never fails an engine; results carry a fallback flag instead.
package analysis

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmarlow/planpilot/internal/logging"
	"github.com/jmarlow/planpilot/internal/prompts"
)

// engineFallbacks counts results served from canned text because no provider
// answered.
var engineFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planpilot_engine_fallback_total",
	Help: "Analysis results that fell back to canned text, by engine.",
}, []string{"engine"})

// ErrNoTasks rejects a feasibility check with an empty task list. It is a
// caller error, raised before any provider is contacted.
var ErrNoTasks = errors.New("no tasks supplied")

// Caller is the slice of the orchestrator the engines depend on. Both
// methods return the first successful provider's text, or the orchestrator's
// single aggregate error.
type Caller interface {
	Call(ctx context.Context, prompt string, maxTokens int) (string, error)
	CallStructured(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Output budgets per elaboration kind.
const (
	feasibilityMaxTokens  = 300
	downgradeMaxTokens    = 120
	overthinkingMaxTokens = 120
	reflectionMaxTokens   = 400
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ═══════════════════════════════════════════════════════════════════════════════

// Engine bundles the four analyzers behind one constructor. It keeps no
// per-request state; every method is a pure function of its input plus at
// most one orchestrator call.
type Engine struct {
	caller Caller
	store  *prompts.Store
	log    *logging.Logger
}

// NewEngine builds an engine over the given orchestrator surface.
func NewEngine(caller Caller, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Global()
	}
	return &Engine{
		caller: caller,
		store:  prompts.Load(),
		log:    log.WithComponent("Analysis"),
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// INPUT AND RESULT TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// Task is one planned task as supplied by the caller. Points are optional
// difficulty points; zero means unknown.
type Task struct {
	Name   string  `json:"name"`
	Day    string  `json:"day"`
	Points float64 `json:"points,omitempty"`
}

// FeasibilityInput is the caller's snapshot of the planned week.
type FeasibilityInput struct {
	Tasks []Task `json:"tasks"`
	Mood  string `json:"mood,omitempty"`
}

// FeasibilityResult is the verdict on a planned week. Analysis always holds
// display text: the provider's elaboration, the canned positive line, or the
// canned rebalancing line when elaboration was unavailable.
type FeasibilityResult struct {
	Feasible     bool               `json:"feasible"`
	AverageLoad  float64            `json:"averageLoad"`
	DayLoads     map[string]float64 `json:"dayLoads"`
	HeavyDays    []string           `json:"heavyDays"`
	FreeDays     int                `json:"freeDays"`
	Warnings     []string           `json:"warnings"`
	Analysis     string             `json:"analysis"`
	Suggestions  []string           `json:"suggestions,omitempty"`
	FallbackMode bool               `json:"fallbackMode"`
}

// DowngradeInput describes one repeatedly missed task.
type DowngradeInput struct {
	TaskName    string `json:"taskName"`
	Difficulty  string `json:"difficulty"`
	MissedCount int    `json:"missedCount"`
}

// DowngradeResult carries both suggestion flavors side by side. RuleBased is
// always set; AIAlternative is empty when no provider answered.
type DowngradeResult struct {
	ShouldDowngrade bool   `json:"shouldDowngrade"`
	RuleBased       string `json:"ruleBased"`
	AIAlternative   string `json:"aiAlternative,omitempty"`
	FallbackMode    bool   `json:"fallbackMode"`
}

// OverthinkingInput is the caller's plan activity snapshot.
type OverthinkingInput struct {
	EditCount    int `json:"editCount"`
	DaysInactive int `json:"daysInactive"`
}

// Severity grades how stuck a student is, from none to critical. It is
// monotonic: more edits or more inactive days never lower it.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// OverthinkingResult reports the guard's verdict. Message is empty exactly
// when Triggered is false.
type OverthinkingResult struct {
	Triggered      bool     `json:"triggered"`
	IsOverthinking bool     `json:"isOverthinking"`
	IsInactive     bool     `json:"isInactive"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message,omitempty"`
	FallbackMode   bool     `json:"fallbackMode"`
}

// ReflectionInput is the week's facts as short lines: completions, misses,
// anything the caller wants reflected on.
type ReflectionInput struct {
	Lines []string `json:"lines"`
}

// Reflection is the four-section weekly write-up. All four lists are always
// present, each possibly empty.
type Reflection struct {
	WhatWentWell    []string `json:"whatWentWell"`
	WhatWentWrong   []string `json:"whatWentWrong"`
	PossibleReasons []string `json:"possibleReasons"`
	Suggestions     []string `json:"suggestions"`
}

// ReflectionResult wraps the reflection with its provenance flag.
type ReflectionResult struct {
	Reflection
	FallbackMode bool `json:"fallbackMode"`
}
