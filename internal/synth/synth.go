// Package synth renders comprehensive snapshot sections. Synthesis is
// stage-routed: the initial branch is pure template guidance for
// greenfield projects, the development branch folds in live git
// analysis.
package synth

import (
	"github.com/Droshow/copidock/internal/commits"
	"github.com/Droshow/copidock/internal/domains"
	"github.com/Droshow/copidock/internal/persona"
)

// Stage names for snapshot synthesis.
const (
	StageInitial     = "initial"
	StageDevelopment = "development"
	StageMaintenance = "maintenance"
)

// Context carries the operator-supplied synthesis knobs.
type Context struct {
	Stage       string
	Focus       string
	Output      string
	Constraints string
	Domain      string
}

// Sections are the four parts of a comprehensive snapshot, always
// rendered in this order.
type Sections struct {
	OperatorInstructions string
	CurrentState         string
	DecisionsConstraints string
	OpenQuestions        string
}

const (
	sectionOperatorInstructions = "operator_instructions"
	sectionCurrentState         = "current_state"
	sectionDecisionsConstraints = "decisions_constraints"
	sectionOpenQuestions        = "open_questions"
)

func (s Sections) asMap() map[string]string {
	return map[string]string{
		sectionOperatorInstructions: s.OperatorInstructions,
		sectionCurrentState:         s.CurrentState,
		sectionDecisionsConstraints: s.DecisionsConstraints,
		sectionOpenQuestions:        s.OpenQuestions,
	}
}

func sectionsFromMap(m map[string]string) Sections {
	s := Sections{
		OperatorInstructions: m[sectionOperatorInstructions],
		CurrentState:         m[sectionCurrentState],
		DecisionsConstraints: m[sectionDecisionsConstraints],
		OpenQuestions:        m[sectionOpenQuestions],
	}
	// Hint-only sections with no canonical slot are appended to the
	// open questions block so nothing a domain contributes is lost.
	for name, content := range m {
		switch name {
		case sectionOperatorInstructions, sectionCurrentState,
			sectionDecisionsConstraints, sectionOpenQuestions:
		default:
			s.OpenQuestions += "\n\n" + content
		}
	}
	return s
}

// Synthesizer renders snapshot sections from persona and domain
// templates.
type Synthesizer struct {
	personas *persona.Loader
	domains  *domains.Loader
}

func New(personas *persona.Loader, domainLoader *domains.Loader) *Synthesizer {
	return &Synthesizer{personas: personas, domains: domainLoader}
}

// Input bundles everything a comprehensive snapshot draws on.
type Input struct {
	Thread    persona.ThreadData
	FilePaths []string
	Commits   []commits.Record
	RepoRoot  string
	Persona   string

	// Comprehensive selects template-backed guidance for the initial
	// stage; false produces a bare structure for manual editing and
	// never touches template files.
	Comprehensive bool
}

// Generate routes by stage. Initial ignores git inputs entirely; every
// other stage takes the development path.
func (s *Synthesizer) Generate(in Input, ctx Context) (Sections, error) {
	var sections Sections
	var err error

	if ctx.Stage == StageInitial {
		sections, err = s.Initial(in.Thread, ctx, in.Persona, in.Comprehensive)
	} else {
		sections, err = s.Development(in, ctx)
	}
	if err != nil {
		return Sections{}, err
	}

	if ctx.Domain != "" {
		hints := s.domains.SynthesisHints(ctx.Domain)
		if len(hints) > 0 {
			sections = sectionsFromMap(domains.MergeSynthesisHints(sections.asMap(), hints))
		}
	}

	return sections, nil
}

func bulletList(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "\n"
		}
		out += "- " + item
	}
	return out
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
