package synth

import (
	"errors"
	"strings"
	"testing"

	"github.com/Droshow/copidock/internal/commits"
	"github.com/Droshow/copidock/internal/domains"
	"github.com/Droshow/copidock/internal/persona"
)

func newTestSynthesizer() *Synthesizer {
	return New(persona.NewLoader(""), domains.NewLoader(""))
}

func TestGenerateInitialBare(t *testing.T) {
	s := newTestSynthesizer()

	sections, err := s.Generate(Input{
		Thread:        persona.ThreadData{Goal: "build a todo app"},
		Persona:       "persona-that-does-not-exist",
		Comprehensive: false,
	}, Context{Stage: StageInitial, Focus: "API design"})
	if err != nil {
		t.Fatalf("bare initial must not touch templates: %v", err)
	}

	if !strings.Contains(sections.OperatorInstructions, "**Primary Focus**: API design") {
		t.Errorf("focus missing:\n%s", sections.OperatorInstructions)
	}
	if !strings.Contains(sections.CurrentState, "empty structure provided for customization") {
		t.Errorf("current state = %q", sections.CurrentState)
	}
	if sections.OpenQuestions != "No predefined questions - customize as needed." {
		t.Errorf("open questions = %q", sections.OpenQuestions)
	}
}

func TestGenerateInitialComprehensive(t *testing.T) {
	s := newTestSynthesizer()

	sections, err := s.Generate(Input{
		Thread:        persona.ThreadData{Goal: "build a todo app"},
		Persona:       "senior-backend-dev",
		Comprehensive: true,
	}, Context{Stage: StageInitial})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(sections.OperatorInstructions, "**Do:**") {
		t.Errorf("guidelines missing:\n%s", sections.OperatorInstructions)
	}
	if !strings.Contains(sections.CurrentState, "comprehensive template guidance provided") {
		t.Errorf("current state = %q", sections.CurrentState)
	}
}

func TestGenerateInitialComprehensiveMissingPersona(t *testing.T) {
	s := newTestSynthesizer()

	_, err := s.Generate(Input{
		Persona:       "persona-that-does-not-exist",
		Comprehensive: true,
	}, Context{Stage: StageInitial})
	if !errors.Is(err, persona.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGenerateDevelopment(t *testing.T) {
	s := newTestSynthesizer()

	in := Input{
		Thread:  persona.ThreadData{Goal: "fix auth bug", Repo: "shop", Branch: "main"},
		Persona: "senior-backend-dev",
		FilePaths: []string{
			"api/routes.go",
			"api/auth.go",
		},
		Commits: []commits.Record{
			{Hash: "abc123", Subject: "fix token refresh", Type: commits.TypeFix},
		},
		RepoRoot: t.TempDir(),
	}

	sections, err := s.Generate(in, Context{Stage: StageDevelopment, Focus: "auth flow"})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(sections.OperatorInstructions, "**Primary Focus**: auth flow") {
		t.Errorf("focus missing:\n%s", sections.OperatorInstructions)
	}
	if !strings.Contains(sections.OperatorInstructions, "**Development Area**: Api Development") {
		t.Errorf("work area missing:\n%s", sections.OperatorInstructions)
	}
	if sections.CurrentState == "" || sections.DecisionsConstraints == "" || sections.OpenQuestions == "" {
		t.Error("all four sections must be rendered")
	}
}

func TestGenerateDevelopmentMissingPersonaFails(t *testing.T) {
	s := newTestSynthesizer()

	_, err := s.Generate(Input{Persona: "persona-that-does-not-exist"}, Context{Stage: StageDevelopment})
	if !errors.Is(err, persona.ErrNotFound) {
		t.Errorf("err = %v, want fail-fast ErrNotFound", err)
	}
}

func TestGenerateMergesDomainHints(t *testing.T) {
	s := newTestSynthesizer()

	sections, err := s.Generate(Input{
		Persona:       "senior-backend-dev",
		Comprehensive: true,
	}, Context{Stage: StageInitial, Domain: "pwa"})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(sections.OperatorInstructions, "### Domain-Specific Guidance") {
		t.Errorf("domain hint not merged:\n%s", sections.OperatorInstructions)
	}
}

func TestGenerateUnknownDomainIsIgnored(t *testing.T) {
	s := newTestSynthesizer()

	sections, err := s.Generate(Input{
		Persona:       "senior-backend-dev",
		Comprehensive: true,
	}, Context{Stage: StageInitial, Domain: "no-such-domain"})
	if err != nil {
		t.Fatalf("unknown domain must not fail synthesis: %v", err)
	}
	if strings.Contains(sections.OperatorInstructions, "Domain-Specific Guidance") {
		t.Error("no hints should be merged for an unknown domain")
	}
}
