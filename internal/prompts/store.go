// Package prompts holds every piece of authored text the analysis engines
// send or return: the templates rendered into provider prompts and the canned
// messages used when no provider is reachable. Embedding them in one file
// keeps wording review in one place.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed static/messages.yaml
var messagesYAML []byte

// Template names known to the bank.
const (
	TmplFeasibility          = "feasibility_elaboration"
	TmplDowngrade            = "downgrade_alternative"
	TmplOverthinkingModerate = "overthinking_moderate"
	TmplOverthinkingSevere   = "overthinking_severe"
	TmplWeeklyReflection     = "weekly_reflection"
)

// Store provides access to prompt templates and canned message texts.
type Store struct {
	templates  map[string]*template.Template
	messages   map[string]map[string]string
	downgrades map[string]map[string]string
	reflection map[string][]string
}

type yamlFile struct {
	Prompts            map[string]string            `yaml:"prompts"`
	Messages           map[string]map[string]string `yaml:"messages"`
	Downgrades         map[string]map[string]string `yaml:"downgrades"`
	ReflectionFallback map[string][]string          `yaml:"reflection_fallback"`
}

// Load initializes the store from the embedded YAML. A corrupt bank yields an
// empty store; every lookup then returns its zero value and callers take
// their fallback paths.
func Load() *Store {
	var data yamlFile
	if err := yaml.Unmarshal(messagesYAML, &data); err != nil {
		data = yamlFile{}
	}

	templates := make(map[string]*template.Template, len(data.Prompts))
	for name, text := range data.Prompts {
		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
		if err != nil {
			continue
		}
		templates[name] = tmpl
	}

	return &Store{
		templates:  templates,
		messages:   data.Messages,
		downgrades: data.Downgrades,
		reflection: data.ReflectionFallback,
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"bullet": func(items []string) string {
			var result strings.Builder
			for _, item := range items {
				result.WriteString("- ")
				result.WriteString(item)
				result.WriteString("\n")
			}
			return result.String()
		},
	}
}

// Has reports whether a prompt template exists.
func (s *Store) Has(name string) bool {
	_, ok := s.templates[name]
	return ok
}

// Render executes the named prompt template. An unknown name or a failed
// execution returns an error; engines treat that like a provider failure and
// take their canned path.
func (s *Store) Render(name string, data any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template: %s", name)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Message returns one canned text by group and key, or "" when absent.
func (s *Store) Message(group, key string) string {
	if keys, ok := s.messages[group]; ok {
		return keys[key]
	}
	return ""
}

// Downgrade returns the pre-authored lighter substitute for a category and
// difficulty. The second return is false when the pair has no entry.
func (s *Store) Downgrade(category, difficulty string) (string, bool) {
	byDifficulty, ok := s.downgrades[category]
	if !ok {
		return "", false
	}
	text, ok := byDifficulty[strings.ToLower(difficulty)]
	return text, ok && text != ""
}

// ReflectionFallback returns the canned reflection lists keyed by section.
func (s *Store) ReflectionFallback(section string) []string {
	return s.reflection[section]
}
