package analysis

import (
	"context"
	"strings"

	"github.com/jmarlow/planpilot/internal/prompts"
)

// downgradeCategories maps each category to the task-name keywords that
// select it. Matching walks the categories in this order and the first hit
// wins.
var downgradeCategories = []struct {
	name     string
	keywords []string
}{
	{"exercise", []string{"exercise", "workout", "gym", "run", "jog", "swim", "sport"}},
	{"study", []string{"study", "read", "review", "learn", "revise", "exam", "homework"}},
	{"coding", []string{"code", "coding", "program", "debug", "script"}},
	{"writing", []string{"write", "writing", "essay", "journal", "blog", "report"}},
	{"practice", []string{"practice", "practise", "rehearse", "drill"}},
}

// escalationThresholds is the missed-count bar per difficulty: harder tasks
// escalate sooner.
var escalationThresholds = map[string]int{
	"hard":   2,
	"medium": 3,
	"easy":   4,
}

// EscalationThreshold returns how many misses a task of the given difficulty
// tolerates before a downgrade should be proposed. Unknown difficulties get
// the medium bar.
func EscalationThreshold(difficulty string) int {
	if threshold, ok := escalationThresholds[strings.ToLower(strings.TrimSpace(difficulty))]; ok {
		return threshold
	}
	return escalationThresholds["medium"]
}

// ShouldDowngrade reports whether the miss count has reached the difficulty's
// escalation bar. Pure bookkeeping, no network.
func ShouldDowngrade(difficulty string, missedCount int) bool {
	return missedCount >= EscalationThreshold(difficulty)
}

// SuggestTaskDowngrade proposes a lighter alternative for a repeatedly
// missed task. The rule-based suggestion is always produced and never
// withheld; the AI alternative is attempted independently and its failure
// only sets the fallback flag.
func (e *Engine) SuggestTaskDowngrade(ctx context.Context, in *DowngradeInput) *DowngradeResult {
	result := &DowngradeResult{
		ShouldDowngrade: ShouldDowngrade(in.Difficulty, in.MissedCount),
		RuleBased:       e.ruleBasedDowngrade(in.TaskName, in.Difficulty),
	}

	prompt, err := e.store.Render(prompts.TmplDowngrade, map[string]any{
		"TaskName":    in.TaskName,
		"Difficulty":  normalizeDifficulty(in.Difficulty),
		"MissedCount": in.MissedCount,
	})
	if err == nil {
		var text string
		text, err = e.caller.Call(ctx, prompt, downgradeMaxTokens)
		if err == nil {
			result.AIAlternative = strings.TrimSpace(text)
			return result
		}
	}

	e.log.Warn("downgrade elaboration unavailable, returning rule-based suggestion only: %v", err)
	engineFallbacks.WithLabelValues("downgrade").Inc()
	result.FallbackMode = true
	return result
}

// ruleBasedDowngrade picks the pre-authored substitute for the task's
// category and difficulty, or the generic difficulty-scaled fallback when no
// category matches.
func (e *Engine) ruleBasedDowngrade(taskName, difficulty string) string {
	difficulty = normalizeDifficulty(difficulty)

	if category, ok := matchCategory(taskName); ok {
		if text, ok := e.store.Downgrade(category, difficulty); ok {
			return text
		}
	}
	return e.store.Message("downgrade_generic", difficulty)
}

// matchCategory finds the first category whose keyword appears in the task
// name.
func matchCategory(taskName string) (string, bool) {
	lowered := strings.ToLower(taskName)
	for _, category := range downgradeCategories {
		for _, keyword := range category.keywords {
			if strings.Contains(lowered, keyword) {
				return category.name, true
			}
		}
	}
	return "", false
}

// normalizeDifficulty lowers the difficulty label and maps anything
// unrecognized to medium.
func normalizeDifficulty(difficulty string) string {
	switch lowered := strings.ToLower(strings.TrimSpace(difficulty)); lowered {
	case "hard", "medium", "easy":
		return lowered
	default:
		return "medium"
	}
}
