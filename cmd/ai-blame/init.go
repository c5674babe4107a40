package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"aiblame/internal/config"
	"aiblame/internal/gitrepo"
)

const postCommitHookTemplate = `#!/bin/bash
# ai-blame post-commit hook
# Attaches AI attribution notes to the commit

if command -v ai-blame &> /dev/null; then
    ai-blame post-commit 2>/dev/null || true
elif [[ -x "$HOME/go/bin/ai-blame" ]]; then
    "$HOME/go/bin/ai-blame" post-commit 2>/dev/null || true
fi
`

const postCommitHookSnippet = `# ai-blame post-commit hook
if command -v ai-blame &> /dev/null; then
    ai-blame post-commit 2>/dev/null || true
fi
`

const postRewriteHookTemplate = `#!/bin/bash
# ai-blame post-rewrite hook
# Remaps AI attribution onto rewritten commits

if command -v ai-blame &> /dev/null; then
    ai-blame propagate --stdin 2>/dev/null || true
elif [[ -x "$HOME/go/bin/ai-blame" ]]; then
    "$HOME/go/bin/ai-blame" propagate --stdin 2>/dev/null || true
fi
`

const postRewriteHookSnippet = `# ai-blame post-rewrite hook
if command -v ai-blame &> /dev/null; then
    ai-blame propagate --stdin 2>/dev/null || true
fi
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ai-blame in a git repository (installs hooks)",
	Long: `Init installs the post-commit hook that finalizes attribution and the
post-rewrite hook that carries it across rebases and amends, then
configures git to push and fetch attribution notes alongside commits.
Existing hooks are appended to, never replaced.`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)

	hooksDir, err := repo.GitPath(ctx, "hooks")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating hooks directory: %v\n", err)
		os.Exit(1)
	}
	if !filepath.IsAbs(hooksDir) {
		hooksDir = filepath.Join(repo.Root(), hooksDir)
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating hooks directory: %v\n", err)
		os.Exit(1)
	}

	action, err := installHook(filepath.Join(hooksDir, "post-commit"), postCommitHookTemplate, postCommitHookSnippet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error installing post-commit hook: %v\n", err)
		os.Exit(1)
	}
	reportHookAction("post-commit", action)

	action, err = installHook(filepath.Join(hooksDir, "post-rewrite"), postRewriteHookTemplate, postRewriteHookSnippet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error installing post-rewrite hook: %v\n", err)
		os.Exit(1)
	}
	reportHookAction("post-rewrite", action)

	if err := configureNotesSync(ctx, repo, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring notes sync: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nSetup complete! AI attribution will be tracked for commits in this repo.")
	fmt.Println("Notes will be automatically pushed/fetched with 'git push' and 'git fetch'.")
	fmt.Println("\nMake sure Claude Code hooks are configured in ~/.claude/settings.json")
}

// hookAction describes what installHook did to a hook file.
type hookAction int

const (
	hookInstalled hookAction = iota
	hookAlreadyInstalled
	hookAppended
)

// installHook writes a hook script, appending the snippet when an
// unrelated hook already exists. A hook that mentions ai-blame anywhere is
// left untouched.
func installHook(path, template, snippet string) (hookAction, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, err
		}
		if err := os.WriteFile(path, []byte(template), 0o755); err != nil {
			return 0, err
		}
		if err := os.Chmod(path, 0o755); err != nil {
			return 0, err
		}
		return hookInstalled, nil
	}

	if strings.Contains(string(content), "ai-blame") {
		return hookAlreadyInstalled, nil
	}

	appended := strings.TrimRight(string(content), "\n") + "\n\n" + snippet
	if err := os.WriteFile(path, []byte(appended), 0o755); err != nil {
		return 0, err
	}
	return hookAppended, nil
}

func reportHookAction(name string, action hookAction) {
	switch action {
	case hookInstalled:
		fmt.Printf("✓ Installed ai-blame %s hook.\n", name)
	case hookAlreadyInstalled:
		fmt.Printf("✓ ai-blame %s hook already installed.\n", name)
	case hookAppended:
		fmt.Printf("✓ Added ai-blame to existing %s hook.\n", name)
	}
}

// configureNotesSync adds push and fetch refspecs for the notes ref so
// attribution travels with normal git push and fetch. Existing ai-blame
// refspecs are left alone.
func configureNotesSync(ctx context.Context, repo *gitrepo.Repo, cfg *config.Config) error {
	ref := cfg.NotesRef
	if ref == "" {
		ref = config.DefaultNotesRef
	}

	push, err := repo.ConfigGetAll(ctx, "remote.origin.push")
	if err != nil {
		return err
	}
	if !refspecConfigured(push) {
		if err := repo.ConfigAdd(ctx, "remote.origin.push", ref); err != nil {
			return err
		}
		fmt.Println("✓ Configured git to push ai-blame notes automatically.")
	} else {
		fmt.Println("✓ Git already configured to push ai-blame notes.")
	}

	fetch, err := repo.ConfigGetAll(ctx, "remote.origin.fetch")
	if err != nil {
		return err
	}
	if !refspecConfigured(fetch) {
		if err := repo.ConfigAdd(ctx, "remote.origin.fetch", "+"+ref+":"+ref); err != nil {
			return err
		}
		fmt.Println("✓ Configured git to fetch ai-blame notes automatically.")
	} else {
		fmt.Println("✓ Git already configured to fetch ai-blame notes.")
	}

	return nil
}

func refspecConfigured(values []string) bool {
	for _, v := range values {
		if strings.Contains(v, "ai-blame") {
			return true
		}
	}
	return false
}
