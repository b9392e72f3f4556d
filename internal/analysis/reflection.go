package analysis

import (
	"context"

	"github.com/jmarlow/planpilot/internal/parse"
	"github.com/jmarlow/planpilot/internal/prompts"
)

// Section header phrases the reflection prompt requests and the parser then
// looks for. Matching is case-insensitive substring, so these are the
// canonical lowercase forms.
const (
	headerWell        = "what went well"
	headerWrong       = "what went wrong"
	headerReasons     = "possible reasons"
	headerSuggestions = "suggestions"
)

var reflectionHeaders = []string{headerWell, headerWrong, headerReasons, headerSuggestions}

// GenerateWeeklyReflection writes the four-section weekly review from the
// caller's week facts. A provider outage yields the canned reflection with
// the fallback flag set; the method never fails.
func (e *Engine) GenerateWeeklyReflection(ctx context.Context, in *ReflectionInput) *ReflectionResult {
	lines := in.Lines
	if len(lines) == 0 {
		lines = []string{"no activity was recorded this week"}
	}

	prompt, err := e.store.Render(prompts.TmplWeeklyReflection, map[string]any{
		"Lines": lines,
	})
	if err == nil {
		var text string
		text, err = e.caller.CallStructured(ctx, prompt, reflectionMaxTokens)
		if err == nil {
			sections := parse.Sections(text, reflectionHeaders)
			return &ReflectionResult{
				Reflection: Reflection{
					WhatWentWell:    sections[headerWell],
					WhatWentWrong:   sections[headerWrong],
					PossibleReasons: sections[headerReasons],
					Suggestions:     sections[headerSuggestions],
				},
			}
		}
	}

	e.log.Warn("weekly reflection unavailable, using canned reflection: %v", err)
	engineFallbacks.WithLabelValues("reflection").Inc()
	return &ReflectionResult{
		Reflection:   e.cannedReflection(),
		FallbackMode: true,
	}
}

// cannedReflection assembles the pre-authored reflection from the text bank.
// Sections stay non-nil even if the bank is somehow empty.
func (e *Engine) cannedReflection() Reflection {
	section := func(name string) []string {
		if lines := e.store.ReflectionFallback(name); lines != nil {
			return lines
		}
		return []string{}
	}

	return Reflection{
		WhatWentWell:    section("what_went_well"),
		WhatWentWrong:   section("what_went_wrong"),
		PossibleReasons: section("possible_reasons"),
		Suggestions:     section("suggestions"),
	}
}
