// Package persona loads role templates that steer snapshot synthesis.
// Templates are YAML files keyed by persona name, with optional
// stage-specific variants ("<persona>-<stage>").
package persona

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Droshow/copidock/internal/classify"
)

// ErrNotFound reports a persona template that does not exist.
var ErrNotFound = errors.New("persona template not found")

//go:embed templates/*.yml
var builtinTemplates embed.FS

// DevelopmentContext carries extra guidance for one work area.
type DevelopmentContext struct {
	SpecificGuidelines []string `yaml:"specific_guidelines"`
	RiskFactors        []string `yaml:"risk_factors"`
}

// Config is a parsed persona template.
type Config struct {
	Name                string                        `yaml:"name"`
	Role                string                        `yaml:"role"`
	Context             string                        `yaml:"context"`
	GuidelinesDo        []string                      `yaml:"guidelines_do"`
	GuidelinesDont      []string                      `yaml:"guidelines_dont"`
	TaskPriorities      []string                      `yaml:"task_priorities"`
	RiskFactors         []string                      `yaml:"risk_factors"`
	FocusAreas          []string                      `yaml:"focus_areas"`
	DevelopmentContexts map[string]DevelopmentContext `yaml:"development_contexts"`
	TemplateRules       map[string]map[string]any     `yaml:"template_rules"`
	GoalModifiers       map[string]map[string]any     `yaml:"goal_modifiers"`
}

// Loader reads persona templates from a directory, falling back to the
// built-in set, and caches parsed configs by name.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Config
}

// NewLoader returns a loader rooted at dir. An empty dir means only the
// built-in templates are available.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: make(map[string]*Config)}
}

// List returns the available persona names, sorted. Directory templates
// and built-ins are merged; a directory template shadows a built-in of
// the same name.
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]bool)

	entries, err := fs.Glob(builtinTemplates, "templates/*.yml")
	if err != nil {
		return nil, fmt.Errorf("listing builtin personas: %w", err)
	}
	for _, e := range entries {
		seen[strings.TrimSuffix(path.Base(e), ".yml")] = true
	}

	if l.dir != "" {
		dirEntries, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("listing personas in %s: %w", l.dir, err)
		}
		for _, e := range dirEntries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), ".yml")] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Load parses the named persona template, consulting the cache first.
func (l *Loader) Load(name string) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg, ok := l.cache[name]; ok {
		return cfg, nil
	}

	data, err := l.readTemplate(name)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in persona %q: %w", name, err)
	}

	l.cache[name] = &cfg
	return &cfg, nil
}

// LoadForStage tries the stage-specific variant "<name>-<stage>" first
// and falls back to the base persona.
func (l *Loader) LoadForStage(name, stage string) (*Config, error) {
	if stage != "" {
		if cfg, err := l.Load(name + "-" + stage); err == nil {
			return cfg, nil
		}
	}
	return l.Load(name)
}

func (l *Loader) readTemplate(name string) ([]byte, error) {
	if l.dir != "" {
		data, err := os.ReadFile(path.Join(l.dir, name+".yml"))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading persona %q: %w", name, err)
		}
	}
	data, err := builtinTemplates.ReadFile("templates/" + name + ".yml")
	if err != nil {
		return nil, fmt.Errorf("persona %q: %w", name, ErrNotFound)
	}
	return data, nil
}

// ThreadData is the thread context templates interpolate.
type ThreadData struct {
	Goal   string
	Repo   string
	Branch string
}

// Overrides are CLI-supplied values that win over any template rule.
type Overrides struct {
	Focus       string
	Output      string
	Constraints string
}

// categoryPriority orders template rule matching; the first category
// present in both the change set and the rules wins.
var categoryPriority = []classify.Category{
	classify.Infrastructure,
	classify.Backend,
	classify.Frontend,
	classify.Tests,
	classify.Configuration,
	classify.Documentation,
}

// ResolveTemplateVars builds the variable map for a snapshot: base
// thread values, the best-matching category rule, goal modifiers, then
// CLI overrides, in increasing precedence.
func (l *Loader) ResolveTemplateVars(personaName string, thread ThreadData, fileCategories map[classify.Category][]string, overrides Overrides) (map[string]any, error) {
	cfg, err := l.Load(personaName)
	if err != nil {
		return nil, err
	}

	goal := thread.Goal
	if goal == "" {
		goal = "development task"
	}
	repo := thread.Repo
	if repo == "" {
		repo = "project"
	}
	branch := thread.Branch
	if branch == "" {
		branch = "main"
	}
	name := cfg.Name
	if name == "" {
		name = "Developer"
	}

	vars := map[string]any{
		"goal":         goal,
		"repo":         repo,
		"branch":       branch,
		"persona_name": name,
	}

	var matched map[string]any
	for _, category := range categoryPriority {
		if len(fileCategories[category]) == 0 {
			continue
		}
		if rule, ok := cfg.TemplateRules[string(category)]; ok {
			matched = rule
			break
		}
	}
	if matched == nil {
		matched = cfg.TemplateRules["default"]
	}
	for k, v := range matched {
		vars[k] = v
	}

	applyGoalModifiers(vars, cfg, goal)

	if overrides.Focus != "" {
		vars["primary_focus"] = overrides.Focus
	}
	if overrides.Output != "" {
		vars["expected_outputs"] = overrides.Output
	}
	if overrides.Constraints != "" {
		vars["constraints"] = overrides.Constraints
	}

	if list, ok := vars["task_list"].([]any); ok {
		items := make([]string, 0, len(list))
		for _, item := range list {
			items = append(items, fmt.Sprintf("- %v", item))
		}
		vars["task_list"] = strings.Join(items, "\n")
	}

	return vars, nil
}

// applyGoalModifiers matches "kw1|kw2" patterns against the goal and
// applies the modifier set. Keys ending in _append extend the existing
// value, _override replaces it, anything else sets it directly.
func applyGoalModifiers(vars map[string]any, cfg *Config, goal string) {
	goalLower := strings.ToLower(goal)

	patterns := make([]string, 0, len(cfg.GoalModifiers))
	for pattern := range cfg.GoalModifiers {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	for _, pattern := range patterns {
		if !matchesGoal(goalLower, pattern) {
			continue
		}
		for key, value := range cfg.GoalModifiers[pattern] {
			switch {
			case strings.HasSuffix(key, "_append"):
				base := strings.TrimSuffix(key, "_append")
				appendVar(vars, base, value)
			case strings.HasSuffix(key, "_override"):
				vars[strings.TrimSuffix(key, "_override")] = value
			default:
				vars[key] = value
			}
		}
	}
}

func matchesGoal(goalLower, pattern string) bool {
	for _, keyword := range strings.Split(pattern, "|") {
		if keyword != "" && strings.Contains(goalLower, keyword) {
			return true
		}
	}
	return false
}

func appendVar(vars map[string]any, key string, value any) {
	existing, ok := vars[key]
	if !ok {
		return
	}
	switch cur := existing.(type) {
	case string:
		if s, ok := value.(string); ok {
			vars[key] = cur + s
		}
	case []any:
		if more, ok := value.([]any); ok {
			vars[key] = append(cur, more...)
		}
	}
}
