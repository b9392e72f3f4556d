package analysis

import (
	"context"
	"strings"

	"github.com/jmarlow/planpilot/internal/prompts"
)

// Overthinking guard thresholds. Severity must be monotonic: raising either
// input never lowers the level.
const (
	editsModerate = 5
	editsSevere   = 7
	editsCritical = 10

	inactiveModerate = 3
	inactiveSevere   = 7

	// Canned inactivity message tiers.
	inactivityLongDays   = 7
	inactivityMediumDays = 5
)

// OverthinkingSeverity grades the activity snapshot.
func OverthinkingSeverity(editCount, daysInactive int) Severity {
	switch {
	case editCount >= editsCritical:
		return SeverityCritical
	case editCount >= editsSevere || daysInactive >= inactiveSevere:
		return SeveritySevere
	case editCount >= editsModerate || daysInactive >= inactiveModerate:
		return SeverityModerate
	default:
		return SeverityNone
	}
}

// CheckOverthinking detects plan-fiddling paralysis. A quiet snapshot
// returns a non-triggered result without touching the network. When the
// guard trips on edits, a provider writes the nudge; on provider outage a
// canned warning stands in and the result is marked fallback. Pure
// inactivity is always handled by canned messages.
func (e *Engine) CheckOverthinking(ctx context.Context, in *OverthinkingInput) *OverthinkingResult {
	result := &OverthinkingResult{
		IsOverthinking: in.EditCount >= editsModerate,
		IsInactive:     in.DaysInactive >= inactiveModerate,
		Severity:       OverthinkingSeverity(in.EditCount, in.DaysInactive),
	}
	result.Triggered = result.IsOverthinking || result.IsInactive

	if !result.Triggered {
		return result
	}

	if !result.IsOverthinking {
		// Inactivity alone never needs a provider.
		result.Message = e.inactivityMessage(in.DaysInactive)
		return result
	}

	template := prompts.TmplOverthinkingModerate
	if in.EditCount >= editsCritical {
		template = prompts.TmplOverthinkingSevere
	}

	prompt, err := e.store.Render(template, map[string]any{
		"EditCount":    in.EditCount,
		"DaysInactive": in.DaysInactive,
	})
	if err == nil {
		var text string
		text, err = e.caller.Call(ctx, prompt, overthinkingMaxTokens)
		if err == nil {
			result.Message = strings.TrimSpace(text)
			return result
		}
	}

	e.log.Warn("overthinking nudge unavailable, using canned warning: %v", err)
	engineFallbacks.WithLabelValues("overthinking").Inc()
	result.Message = e.cannedOverthinkingWarning(in.EditCount)
	result.FallbackMode = true
	return result
}

// inactivityMessage selects the canned message tier for a stretch of quiet
// days.
func (e *Engine) inactivityMessage(daysInactive int) string {
	switch {
	case daysInactive >= inactivityLongDays:
		return e.store.Message("inactivity", "long")
	case daysInactive >= inactivityMediumDays:
		return e.store.Message("inactivity", "medium")
	default:
		return e.store.Message("inactivity", "short")
	}
}

// cannedOverthinkingWarning selects the deterministic warning by the same
// edit-count bars that picked the nudge tone.
func (e *Engine) cannedOverthinkingWarning(editCount int) string {
	if editCount >= editsCritical {
		return e.store.Message("overthinking", "critical")
	}
	return e.store.Message("overthinking", "moderate")
}
