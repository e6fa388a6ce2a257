// Package main provides the copidock CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Droshow/copidock/internal/config"
	"github.com/Droshow/copidock/internal/domains"
	"github.com/Droshow/copidock/internal/persona"
	"github.com/Droshow/copidock/internal/remote"
)

// Version is the current copidock CLI version.
var Version = "0.3.0"

const defaultPersona = "senior-backend-dev"

var rootCmd = &cobra.Command{
	Use:     "copidock",
	Short:   "Copidock - versioned, rehydratable project context snapshots",
	Long:    `Copidock captures project context (source files, git history, notes) into versioned markdown documents that can be rehydrated to continue a development thread.`,
	Version: Version,
}

var profileFlag string

// newClient builds an API client from the selected profile.
func newClient() (*remote.Client, time.Duration, error) {
	prof, err := config.LoadProfile(profileFlag)
	if err != nil {
		return nil, 0, err
	}
	if prof.APIBase == "" {
		return nil, 0, fmt.Errorf("no api_base configured; set profile %q in the config file or COPIDOCK_API_BASE", profileFlag)
	}
	return remote.New(prof.APIBase, prof.APIKey, prof.Timeout()), prof.Timeout(), nil
}

// ----- thread -----

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Manage development threads",
}

var threadStartGoal string
var threadStartRepo string
var threadStartBranch string

var threadStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new development thread",
	RunE:  runThreadStart,
}

func runThreadStart(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(threadStartGoal)
	if goal == "" {
		return fmt.Errorf("--goal is required")
	}

	repoRoot := config.FindRepoRoot(".")
	repoName, branch := repoIdentity(repoRoot, threadStartRepo, threadStartBranch)

	client, timeout, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := client.StartThread(ctx, goal, repoName, branch)
	if err != nil {
		return err
	}

	state := config.LoadState(repoRoot)
	state.ThreadID = resp.ThreadID
	state.ThreadName = resp.ThreadName
	state.Goal = goal
	state.Repo = repoName
	state.Branch = branch
	if err := config.SaveState(repoRoot, state); err != nil {
		return err
	}

	fmt.Printf("Thread started: %s\n", resp.ThreadID)
	fmt.Printf("Name: %s\n", resp.ThreadName)
	return nil
}

// ----- note -----

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteTags []string

var noteAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a free-text note to the active thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteAdd,
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	content := strings.TrimSpace(args[0])
	if content == "" {
		return fmt.Errorf("note content is empty")
	}

	repoRoot := config.FindRepoRoot(".")
	state := config.LoadState(repoRoot)

	client, timeout, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := client.CreateNote(ctx, content, noteTags, state.ThreadID)
	if err != nil {
		return err
	}

	fmt.Printf("Note saved: %s\n", resp.NoteID)
	return nil
}

// ----- rehydrate -----

var rehydrateCmd = &cobra.Command{
	Use:   "rehydrate",
	Short: "Retrieve snapshots for continuation",
}

var rehydrateOutput string

var rehydrateLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Fetch the latest snapshot of the active thread",
	RunE:  runRehydrateLatest,
}

func runRehydrateLatest(cmd *cobra.Command, args []string) error {
	repoRoot := config.FindRepoRoot(".")
	state := config.LoadState(repoRoot)
	if state.ThreadID == "" {
		return fmt.Errorf("no active thread; run 'copidock thread start' first")
	}

	client, timeout, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := client.RehydrateLatest(ctx, state.ThreadID)
	if err != nil {
		return err
	}

	content, err := client.Download(ctx, resp.PresignedURL)
	if err != nil {
		return err
	}

	if rehydrateOutput != "" {
		if err := os.WriteFile(rehydrateOutput, content, 0644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		fmt.Printf("Snapshot v%s written to %s\n", resp.SnapshotMetadata.Version, rehydrateOutput)
		return nil
	}

	fmt.Print(string(content))
	return nil
}

// ----- personas / domains -----

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Persona templates",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available persona templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := persona.NewLoader(personaTemplatesDir())
		names, err := loader.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Domain overlay templates",
}

var domainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available domain templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := domains.NewLoader(domainTemplatesDir())
		names, err := loader.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Printf("%s - %s\n", name, loader.DisplayName(name))
		}
		return nil
	},
}

// personaTemplatesDir resolves the optional on-disk persona template
// directory; built-in templates are always available.
func personaTemplatesDir() string {
	if dir := os.Getenv("COPIDOCK_PERSONAS_DIR"); dir != "" {
		return dir
	}
	return ""
}

func domainTemplatesDir() string {
	if dir := os.Getenv("COPIDOCK_DOMAINS_DIR"); dir != "" {
		return dir
	}
	return ""
}

func main() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", config.DefaultProfile, "config profile")

	threadStartCmd.Flags().StringVar(&threadStartGoal, "goal", "", "thread goal (required)")
	threadStartCmd.Flags().StringVar(&threadStartRepo, "repo", "", "repository name override")
	threadStartCmd.Flags().StringVar(&threadStartBranch, "branch", "", "branch name override")
	threadCmd.AddCommand(threadStartCmd)

	noteAddCmd.Flags().StringSliceVar(&noteTags, "tags", nil, "comma-separated note tags")
	noteCmd.AddCommand(noteAddCmd)

	rehydrateLatestCmd.Flags().StringVar(&rehydrateOutput, "output", "", "write snapshot to file instead of stdout")
	rehydrateCmd.AddCommand(rehydrateLatestCmd)

	personasCmd.AddCommand(personasListCmd)
	domainsCmd.AddCommand(domainsListCmd)

	addSnapshotCommands()
	addPRDCommands()

	rootCmd.AddCommand(threadCmd, noteCmd, snapshotCmd, rehydrateCmd, prdCmd, personasCmd, domainsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
