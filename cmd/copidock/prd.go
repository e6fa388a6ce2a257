package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Droshow/copidock/internal/config"
	"github.com/Droshow/copidock/internal/domains"
	"github.com/Droshow/copidock/internal/persona"
	"github.com/Droshow/copidock/internal/prd"
	"github.com/Droshow/copidock/internal/synth"
)

var prdCmd = &cobra.Command{
	Use:   "prd",
	Short: "Manage product requirements documents",
}

var (
	prdProject     string
	prdPersona     string
	prdFocus       string
	prdOutput      string
	prdConstraints string
	prdDomain      string
	prdNoUpload    bool
)

var prdCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a PRD for the initial project stage",
	RunE:  runPRDCreate,
}

var prdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local PRDs",
	RunE:  runPRDList,
}

var prdShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a PRD (current one when no name is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPRDShow,
}

func addPRDCommands() {
	f := prdCreateCmd.Flags()
	f.StringVar(&prdProject, "project", "", "project name (required)")
	f.StringVar(&prdPersona, "persona", defaultPersona, "persona template")
	f.StringVar(&prdFocus, "focus", "", "focus area")
	f.StringVar(&prdOutput, "output", "", "expected output")
	f.StringVar(&prdConstraints, "constraints", "", "constraints")
	f.StringVar(&prdDomain, "domain", "", "domain overlay")
	f.BoolVar(&prdNoUpload, "no-upload", false, "keep the PRD local, skip backend upload")
	prdCmd.AddCommand(prdCreateCmd, prdListCmd, prdShowCmd)
}

func runPRDCreate(cmd *cobra.Command, args []string) error {
	project := strings.TrimSpace(prdProject)
	if project == "" {
		return fmt.Errorf("--project is required")
	}

	repoRoot := config.FindRepoRoot(".")
	state := config.LoadState(repoRoot)

	domainLoader := domains.NewLoader(domainTemplatesDir())
	var domainContext map[string]string
	if prdDomain != "" {
		tmpl, err := domainLoader.Load(prdDomain)
		if err != nil {
			return err
		}
		domainContext = map[string]string{"description": tmpl.Description}
	}

	synthCtx := synth.Context{
		Stage:       synth.StageInitial,
		Focus:       prdFocus,
		Output:      prdOutput,
		Constraints: prdConstraints,
		Domain:      prdDomain,
	}
	in := synth.Input{
		Thread: persona.ThreadData{
			Goal:   orFallback(state.Goal, project),
			Repo:   state.Repo,
			Branch: state.Branch,
		},
		Persona:       prdPersona,
		Comprehensive: true,
	}

	s := synth.New(persona.NewLoader(personaTemplatesDir()), domainLoader)
	sections, err := s.Generate(in, synthCtx)
	if err != nil {
		return err
	}

	now := time.Now()
	prdID := prd.NewID(now)
	prdCtx := prd.Context{
		ProjectName:   project,
		ThreadID:      state.ThreadID,
		Repo:          state.Repo,
		Branch:        state.Branch,
		Persona:       prdPersona,
		Focus:         prdFocus,
		Output:        prdOutput,
		Constraints:   prdConstraints,
		Domain:        prdDomain,
		DomainContext: domainContext,
	}
	content := prd.Render(prdCtx, sections, prdID, now)

	path, err := prd.Write(repoRoot, prd.Filename(project, now), content)
	if err != nil {
		return err
	}
	fmt.Printf("PRD written: %s\n", path)

	state.ActivePRD = prdID
	state.PRDVersion = "1"
	if err := config.SaveState(repoRoot, state); err != nil {
		return err
	}

	if prdNoUpload || state.ThreadID == "" {
		return nil
	}

	client, timeout, err := newClient()
	if err != nil {
		fmt.Printf("PRD kept local only: %v\n", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := client.Hydrate(ctx, state.ThreadID, content, map[string]string{
		"prd_id":  prdID,
		"project": project,
	})
	if err != nil {
		fmt.Printf("PRD kept local only, upload failed: %v\n", err)
		return nil
	}
	fmt.Printf("PRD uploaded: %s\n", resp.ObjectKey)
	return nil
}

func runPRDList(cmd *cobra.Command, args []string) error {
	repoRoot := config.FindRepoRoot(".")
	entries, err := prd.List(repoRoot)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No PRDs found")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.Filename, e.CreatedAt)
	}
	return nil
}

func runPRDShow(cmd *cobra.Command, args []string) error {
	repoRoot := config.FindRepoRoot(".")
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	content, err := prd.Read(repoRoot, name)
	if err != nil {
		return err
	}
	fmt.Print(content)
	return nil
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
