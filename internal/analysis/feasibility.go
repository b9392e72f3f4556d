package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmarlow/planpilot/internal/parse"
	"github.com/jmarlow/planpilot/internal/prompts"
)

// Feasibility thresholds. Load is task count times average difficulty
// points; tasks without points weigh defaultTaskWeight each.
const (
	defaultTaskWeight = 1.0
	heavyLoadMin      = 7.0
	feasibleAvgMax    = 6.0
	feasibleHeavyMax  = 2
	highAvgThreshold  = 5.0
)

// weekDays is the canonical day order used for deterministic output.
var weekDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// CheckFeasibility judges whether the planned week is doable. The verdict,
// loads, and warnings are computed locally; a provider is consulted only when
// the plan has issues, and its outage downgrades the analysis text rather
// than failing the check.
//
// An empty task list is the one caller error: it is rejected before any
// provider is contacted.
func (e *Engine) CheckFeasibility(ctx context.Context, in *FeasibilityInput) (*FeasibilityResult, error) {
	if len(in.Tasks) == 0 {
		return nil, ErrNoTasks
	}

	loads := dayLoads(in.Tasks)

	var total float64
	for _, load := range loads {
		total += load
	}
	average := total / float64(len(weekDays))

	var heavyDays []string
	for day, load := range loads {
		if load >= heavyLoadMin {
			heavyDays = append(heavyDays, day)
		}
	}
	sortDays(heavyDays)

	freeDays := 0
	for _, day := range weekDays {
		if loads[day] == 0 {
			freeDays++
		}
	}

	result := &FeasibilityResult{
		Feasible:    average <= feasibleAvgMax && len(heavyDays) <= feasibleHeavyMax,
		AverageLoad: average,
		DayLoads:    loads,
		HeavyDays:   heavyDays,
		FreeDays:    freeDays,
		Warnings:    feasibilityWarnings(heavyDays, average, in.Mood),
	}

	hasIssues := len(heavyDays) > 0 || average > highAvgThreshold
	if !hasIssues {
		result.Analysis = e.store.Message("feasibility", "positive")
		return result, nil
	}

	e.elaborateFeasibility(ctx, in, result)
	return result, nil
}

// dayLoads groups tasks by lowercased day name and computes each day's load
// as count times average points, with the flat default weight standing in
// for missing points.
func dayLoads(tasks []Task) map[string]float64 {
	counts := make(map[string]int)
	points := make(map[string]float64)
	for _, task := range tasks {
		day := strings.ToLower(strings.TrimSpace(task.Day))
		counts[day]++
		if task.Points > 0 {
			points[day] += task.Points
		} else {
			points[day] += defaultTaskWeight
		}
	}

	loads := make(map[string]float64, len(weekDays))
	for _, day := range weekDays {
		loads[day] = 0
	}
	for day, count := range counts {
		average := points[day] / float64(count)
		loads[day] = float64(count) * average
	}
	return loads
}

// feasibilityWarnings emits the deterministic warning lines.
func feasibilityWarnings(heavyDays []string, average float64, mood string) []string {
	var warnings []string

	if len(heavyDays) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d day(s) carry a heavy load: %s",
			len(heavyDays), strings.Join(heavyDays, ", ")))
	}
	if average > highAvgThreshold {
		warnings = append(warnings, fmt.Sprintf("average daily load %.1f is high", average))
	}

	switch strings.ToLower(strings.TrimSpace(mood)) {
	case "tired", "stressed":
		warnings = append(warnings, fmt.Sprintf("you reported feeling %s, plan lighter days",
			strings.ToLower(strings.TrimSpace(mood))))
	}

	return warnings
}

// elaborateFeasibility asks a provider to expand on the plan's issues. On
// any failure the canned rebalancing line stands in and the result is marked
// fallback.
func (e *Engine) elaborateFeasibility(ctx context.Context, in *FeasibilityInput, result *FeasibilityResult) {
	prompt, err := e.store.Render(prompts.TmplFeasibility, map[string]any{
		"Lines":         dayLoadLines(result.DayLoads),
		"AverageLoad":   result.AverageLoad,
		"HeavyDayCount": len(result.HeavyDays),
		"Mood":          strings.ToLower(strings.TrimSpace(in.Mood)),
	})
	if err == nil {
		var text string
		text, err = e.caller.CallStructured(ctx, prompt, feasibilityMaxTokens)
		if err == nil {
			result.Analysis = text
			result.Suggestions = parse.BulletItems(text)
			return
		}
	}

	e.log.Warn("feasibility elaboration unavailable, using canned summary: %v", err)
	engineFallbacks.WithLabelValues("feasibility").Inc()
	result.Analysis = e.store.Message("feasibility", "issues")
	result.FallbackMode = true
}

// dayLoadLines renders one summary line per non-empty day, in week order.
func dayLoadLines(loads map[string]float64) []string {
	var lines []string
	for _, day := range weekDays {
		if loads[day] > 0 {
			lines = append(lines, fmt.Sprintf("%s: load %.1f", day, loads[day]))
		}
	}
	for _, day := range sortedUnknownDays(loads) {
		lines = append(lines, fmt.Sprintf("%s: load %.1f", day, loads[day]))
	}
	return lines
}

// sortDays orders day names canonically, with unknown names after the real
// weekdays in alphabetical order.
func sortDays(days []string) {
	index := make(map[string]int, len(weekDays))
	for i, day := range weekDays {
		index[day] = i
	}
	sort.Slice(days, func(i, j int) bool {
		di, iKnown := index[days[i]]
		dj, jKnown := index[days[j]]
		switch {
		case iKnown && jKnown:
			return di < dj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return days[i] < days[j]
		}
	})
}

// sortedUnknownDays lists non-canonical day keys with load, alphabetically.
func sortedUnknownDays(loads map[string]float64) []string {
	known := make(map[string]bool, len(weekDays))
	for _, day := range weekDays {
		known[day] = true
	}

	var unknown []string
	for day, load := range loads {
		if !known[day] && load > 0 {
			unknown = append(unknown, day)
		}
	}
	sort.Strings(unknown)
	return unknown
}
