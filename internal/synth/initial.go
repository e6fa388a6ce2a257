package synth

import (
	"fmt"
	"strings"

	"github.com/Droshow/copidock/internal/persona"
)

// Initial renders greenfield guidance with no git analysis at all.
// Comprehensive mode requires the "{persona}-initial" template (the
// base persona serves as fallback) and fails if neither exists; bare
// mode emits an empty structure and never reads templates.
func (s *Synthesizer) Initial(thread persona.ThreadData, ctx Context, personaName string, comprehensive bool) (Sections, error) {
	if !comprehensive {
		return Sections{
			OperatorInstructions: initialOperatorInstructionsBare(ctx),
			CurrentState:         "This is a greenfield project - empty structure provided for customization.",
			DecisionsConstraints: initialDecisionsConstraintsBare(ctx),
			OpenQuestions:        "No predefined questions - customize as needed.",
		}, nil
	}

	cfg, err := s.personas.LoadForStage(personaName, StageInitial)
	if err != nil {
		return Sections{}, fmt.Errorf("loading initial persona %q: %w", personaName, err)
	}

	return Sections{
		OperatorInstructions: initialOperatorInstructions(ctx, cfg),
		CurrentState:         "This is a greenfield project - comprehensive template guidance provided.",
		DecisionsConstraints: initialDecisionsConstraints(ctx, cfg),
		OpenQuestions:        "Template-based questions and considerations provided.",
	}, nil
}

func initialOperatorInstructions(ctx Context, cfg *persona.Config) string {
	focus := orDefault(ctx.Focus, "project setup")
	output := orDefault(ctx.Output, "working foundation")

	return fmt.Sprintf(`## Operator Instructions

You are a **%s** %s.

**Primary Focus**: %s

### Guidelines

**Do:**
%s

**Don't:**
%s

### Tasks for This Session
%s

### Expected Outputs
%s

### Risk Factors
%s

---
`,
		orDefault(cfg.Role, "Senior Backend Developer"),
		orDefault(cfg.Context, "setting up a new project"),
		focus,
		bulletList(cfg.GuidelinesDo), bulletList(cfg.GuidelinesDont),
		bulletList(cfg.TaskPriorities), output, bulletList(cfg.RiskFactors))
}

func initialOperatorInstructionsBare(ctx Context) string {
	focus := orDefault(ctx.Focus, "project setup")
	output := orDefault(ctx.Output, "working foundation")

	return fmt.Sprintf(`## Operator Instructions

You are a **Senior Backend Developer** setting up a new project from scratch.

**Primary Focus**: %s

### Guidelines

**Do:**

**Don't:**

### Tasks for This Session

### Expected Outputs
%s

### Risk Factors

---
`, focus, output)
}

func initialDecisionsConstraints(ctx Context, cfg *persona.Config) string {
	constraints := orDefault(ctx.Constraints, "best practices")

	var approach []string
	for _, area := range cfg.FocusAreas {
		lower := strings.ToLower(area)
		switch {
		case strings.Contains(lower, "architecture"):
			approach = append(approach, "- **Architecture**: Design for scalability and maintainability")
		case strings.Contains(lower, "technology"):
			approach = append(approach, "- **Technology**: Select proven, well-supported technologies")
		case strings.Contains(lower, "development"), strings.Contains(lower, "environment"):
			approach = append(approach, "- **Development**: Set up proper development and testing environment")
		case strings.Contains(lower, "project structure"), strings.Contains(lower, "setup"):
			approach = append(approach, "- **Documentation**: Document key architectural decisions")
		}
	}

	return fmt.Sprintf(`## Decisions & Constraints

**Project Requirements**: %s

## Technical Approach
%s

## Initial Setup Priorities
1. **Architecture Design**: Define system boundaries and component interactions
2. **Technology Selection**: Choose appropriate frameworks and databases
3. **Environment Setup**: Configure development and deployment environments
4. **Foundation Code**: Create project structure and basic scaffolding`,
		constraints, strings.Join(approach, "\n"))
}

func initialDecisionsConstraintsBare(ctx Context) string {
	constraints := orDefault(ctx.Constraints, "best practices")

	return fmt.Sprintf(`## Decisions & Constraints

**Project Requirements**: %s

## Technical Approach

## Initial Setup Priorities
1.
2.
3.
4. `, constraints)
}
