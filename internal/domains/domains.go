// Package domains loads domain overlay templates (pwa, fintech, ...)
// that add domain-specific guidance to synthesized snapshot sections.
package domains

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports a domain template that does not exist.
var ErrNotFound = errors.New("domain template not found")

//go:embed templates/*.yml
var builtinTemplates embed.FS

// Question is an extra prompt a domain adds to interactive flows.
type Question struct {
	Key      string `yaml:"key"`
	Prompt   string `yaml:"prompt"`
	HelpText string `yaml:"help_text"`
	Default  string `yaml:"default"`
}

// Template is a parsed domain overlay.
type Template struct {
	DisplayName         string            `yaml:"display_name"`
	Description         string            `yaml:"description"`
	AdditionalQuestions []Question        `yaml:"additional_questions"`
	SynthesisHints      map[string]string `yaml:"synthesis_hints"`
}

// Loader reads domain templates from a directory with built-in
// fallbacks, mirroring the persona loader layout.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// List returns available domain names, sorted.
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]bool)

	entries, err := fs.Glob(builtinTemplates, "templates/*.yml")
	if err != nil {
		return nil, fmt.Errorf("listing builtin domains: %w", err)
	}
	for _, e := range entries {
		seen[strings.TrimSuffix(path.Base(e), ".yml")] = true
	}

	if l.dir != "" {
		dirEntries, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("listing domains in %s: %w", l.dir, err)
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

// Load parses the named domain template.
func (l *Loader) Load(name string) (*Template, error) {
	data, err := l.readTemplate(name)
	if err != nil {
		return nil, err
	}
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("invalid YAML in domain %q: %w", name, err)
	}
	return &tpl, nil
}

func (l *Loader) readTemplate(name string) ([]byte, error) {
	if l.dir != "" {
		data, err := os.ReadFile(path.Join(l.dir, name+".yml"))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading domain %q: %w", name, err)
		}
	}
	data, err := builtinTemplates.ReadFile("templates/" + name + ".yml")
	if err != nil {
		return nil, fmt.Errorf("domain %q: %w", name, ErrNotFound)
	}
	return data, nil
}

// DisplayName returns the human-readable name for a domain, deriving
// one from the identifier when the template carries none.
func (l *Loader) DisplayName(name string) string {
	if tpl, err := l.Load(name); err == nil && tpl.DisplayName != "" {
		return tpl.DisplayName
	}
	return titleWords(strings.ReplaceAll(name, "-", " "))
}

// SynthesisHints returns the domain's per-section hints, or an empty
// map if the domain has none or does not exist.
func (l *Loader) SynthesisHints(name string) map[string]string {
	tpl, err := l.Load(name)
	if err != nil || tpl.SynthesisHints == nil {
		return map[string]string{}
	}
	return tpl.SynthesisHints
}

// MergeSynthesisHints folds domain hints into rendered sections. Hints
// for an existing section are appended under a Domain-Specific Guidance
// sub-heading; hints for unknown sections become new sections.
func MergeSynthesisHints(sections map[string]string, hints map[string]string) map[string]string {
	merged := make(map[string]string, len(sections))
	for k, v := range sections {
		merged[k] = v
	}
	for name, hint := range hints {
		if existing, ok := merged[name]; ok {
			merged[name] = existing + "\n\n### Domain-Specific Guidance\n\n" + hint
		} else {
			merged[name] = "## " + titleWords(strings.ReplaceAll(name, "_", " ")) + "\n\n" + hint
		}
	}
	return merged
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
