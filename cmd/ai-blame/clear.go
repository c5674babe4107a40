package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiblame/internal/staging"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear pending changes without committing",
	Long: `Clear discards all captured-but-unfinalized AI edits. Use it to reset
the pending area after abandoning work, or to recover from a corrupt
staging file.`,
	Args: cobra.NoArgs,
	Run:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)

	area := staging.NewArea(repo.GitDir(), cfg, logger)
	if _, err := area.Clear(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing pending captures: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Cleared pending AI attribution.")
}
