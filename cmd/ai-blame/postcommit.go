package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiblame/internal/finalize"
	"aiblame/internal/notes"
	"aiblame/internal/promptstore"
	"aiblame/internal/staging"
)

var postCommitCmd = &cobra.Command{
	Use:   "post-commit",
	Short: "Finalize attribution after a commit (post-commit hook)",
	Long: `Post-commit drains pending captures, intersects them with what the new
HEAD commit actually changed, and writes the surviving attribution as a
git note on that commit. The installed post-commit hook runs this
automatically; failures never abort the commit, which already exists.`,
	Args: cobra.NoArgs,
	Run:  runPostCommit,
}

func init() {
	rootCmd.AddCommand(postCommitCmd)
}

func runPostCommit(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)
	logger = loggerFromConfig(cfg)

	head, err := repo.Head(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving HEAD: %v\n", err)
		os.Exit(1)
	}

	area := staging.NewArea(repo.GitDir(), cfg, logger)
	notesRepo := notes.NewRepository(repo, cfg, logger)

	// Prompt bodies are best-effort local metadata; a broken store must
	// never block attribution of the commit that already exists.
	prompts, err := promptstore.Open(repo.GitDir(), cfg, logger)
	if err != nil {
		logger.Warn("Prompt store unavailable, prompt bodies will not be stored", map[string]interface{}{
			"error": err.Error(),
		})
		prompts = nil
	} else {
		defer prompts.Close()
	}

	fin := finalize.New(repo, area, notesRepo, prompts, logger)
	result, err := fin.Run(ctx, head)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finalizing attribution: %v\n", err)
		os.Exit(1)
	}

	if result.Written {
		logger.Info("Attribution recorded", map[string]interface{}{
			"commit":  shortRev(result.Commit),
			"files":   result.Files,
			"lines":   result.Lines,
			"entries": result.Entries,
		})
	}
}
