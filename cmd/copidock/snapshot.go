package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Droshow/copidock/internal/commits"
	"github.com/Droshow/copidock/internal/config"
	"github.com/Droshow/copidock/internal/detect"
	"github.com/Droshow/copidock/internal/domains"
	"github.com/Droshow/copidock/internal/gather"
	"github.com/Droshow/copidock/internal/gitio"
	"github.com/Droshow/copidock/internal/persona"
	"github.com/Droshow/copidock/internal/proto"
	"github.com/Droshow/copidock/internal/synth"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Create project context snapshots",
}

var (
	snapMessage     string
	snapPersona     string
	snapStage       string
	snapFocus       string
	snapOutput      string
	snapConstraints string
	snapDomain      string
	snapBudget      int
	snapCommits     int
	snapBare        bool
	snapPathsOnly   bool
)

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture the current project state into a versioned snapshot",
	RunE:  runSnapshotCreate,
}

func addSnapshotCommands() {
	f := snapshotCreateCmd.Flags()
	f.StringVar(&snapMessage, "message", "", "snapshot message")
	f.StringVar(&snapPersona, "persona", defaultPersona, "persona template for synthesis")
	f.StringVar(&snapStage, "stage", synth.StageDevelopment, "project stage (initial, development, maintenance)")
	f.StringVar(&snapFocus, "focus", "", "focus area override")
	f.StringVar(&snapOutput, "output", "", "expected output override")
	f.StringVar(&snapConstraints, "constraints", "", "constraints override")
	f.StringVar(&snapDomain, "domain", "", "domain overlay (e.g. pwa, healthcare)")
	f.IntVar(&snapBudget, "budget", gather.DefaultBudget, "token budget for gathered sources")
	f.IntVar(&snapCommits, "commits", 10, "number of recent commits to analyze")
	f.BoolVar(&snapBare, "bare", false, "initial stage only: emit a bare structure without persona guidance")
	f.BoolVar(&snapPathsOnly, "paths-only", false, "record file paths without inlining content or synthesis")
	snapshotCmd.AddCommand(snapshotCreateCmd)
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	repoRoot := config.FindRepoRoot(".")
	state := config.LoadState(repoRoot)
	if state.ThreadID == "" {
		return fmt.Errorf("no active thread; run 'copidock thread start' first")
	}

	git := gitio.NewClient(repoRoot)
	scanner := gather.NewScanner(repoRoot, git)
	candidates, stats := scanner.Gather(snapBudget)
	paths := gather.Paths(candidates)

	fmt.Printf("Gathered %d files (%d changed, %d skipped)\n",
		stats.FinalCount, stats.TotalChanged, stats.SkippedBinary+stats.SkippedIrrelevant)

	client, timeout, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if snapPathsOnly {
		resp, err := client.CreateSnapshot(ctx, state.ThreadID, paths, snapMessage)
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot v%d created: %s\n", resp.Version, resp.ObjectKey)
		return nil
	}

	records := commits.Analyze(git, snapCommits)
	sections, err := synthesize(state, paths, records, repoRoot)
	if err != nil {
		return err
	}

	req := proto.ComprehensiveSnapshotRequest{
		ThreadID:      state.ThreadID,
		InlineSources: inlineSources(repoRoot, candidates),
		Synth: proto.SynthSections{
			OperatorInstructions: sections.OperatorInstructions,
			CurrentState:         sections.CurrentState,
			DecisionsConstraints: sections.DecisionsConstraints,
			OpenQuestions:        sections.OpenQuestions,
		},
		Message: snapMessage,
	}

	resp, err := client.CreateComprehensiveSnapshot(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Comprehensive snapshot v%d created: %s\n", resp.Version, resp.ObjectKey)
	fmt.Printf("Sources: %d, sections: %s\n", resp.SourcesCount, strings.Join(resp.SynthesisSections, ", "))
	return nil
}

// synthesize builds the four snapshot sections, filling unset focus,
// output and constraints from repository signals.
func synthesize(state config.State, paths []string, records []commits.Record, repoRoot string) (synth.Sections, error) {
	focus, output, constraints := snapFocus, snapOutput, snapConstraints
	if focus == "" || output == "" || constraints == "" {
		detected := detect.Detect(paths, detectCommits(records))
		if focus == "" {
			focus = detected.Focus
		}
		if output == "" {
			output = detected.Output
		}
		if constraints == "" {
			constraints = strings.Join(detected.Constraints, ", ")
		}
	}

	synthCtx := synth.Context{
		Stage:       snapStage,
		Focus:       focus,
		Output:      output,
		Constraints: constraints,
		Domain:      snapDomain,
	}
	in := synth.Input{
		Thread: persona.ThreadData{
			Goal:   state.Goal,
			Repo:   state.Repo,
			Branch: state.Branch,
		},
		FilePaths:     paths,
		Commits:       records,
		RepoRoot:      repoRoot,
		Persona:       snapPersona,
		Comprehensive: !snapBare,
	}

	s := synth.New(persona.NewLoader(personaTemplatesDir()), domains.NewLoader(domainTemplatesDir()))
	return s.Generate(in, synthCtx)
}

func detectCommits(records []commits.Record) []detect.Commit {
	out := make([]detect.Commit, 0, len(records))
	for _, r := range records {
		out = append(out, detect.Commit{Hash: r.Hash, Message: r.Subject})
	}
	return out
}

// inlineSources reads candidate file contents from disk. Unreadable
// files are dropped rather than failing the whole snapshot.
func inlineSources(repoRoot string, candidates []gather.Candidate) []proto.InlineSource {
	out := make([]proto.InlineSource, 0, len(candidates))
	for _, c := range candidates {
		data, err := os.ReadFile(filepath.Join(repoRoot, c.Path))
		if err != nil {
			continue
		}
		out = append(out, proto.InlineSource{
			Path:     c.Path,
			Language: languageOf(c.Path),
			Content:  string(data),
		})
	}
	return out
}

var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".sh":   "bash",
	".sql":  "sql",
	".tf":   "terraform",
	".yml":  "yaml",
	".yaml": "yaml",
	".json": "json",
	".toml": "toml",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
}

func languageOf(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

// repoIdentity resolves the repository name and branch, letting explicit
// overrides win over what git reports.
func repoIdentity(repoRoot, repoOverride, branchOverride string) (string, string) {
	info := gitio.Info(repoRoot)
	name, branch := info.Name, info.Branch
	if repoOverride != "" {
		name = repoOverride
	}
	if branchOverride != "" {
		branch = branchOverride
	}
	return name, branch
}
