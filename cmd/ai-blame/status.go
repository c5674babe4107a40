package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiblame/internal/staging"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes status",
	Long: `Status reports captured AI edits that have not been folded into a
commit yet. Pending captures attach to the next commit you make.`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)

	area := staging.NewArea(repo.GitDir(), cfg, logger)
	pending, err := area.Summary(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading pending captures: %v\n", err)
		os.Exit(1)
	}

	if pending.HasPending {
		session := pending.SessionID
		if session == "" {
			session = "unknown"
		}
		fmt.Println("Pending AI attribution:")
		fmt.Printf("  Session: %s\n", session)
		fmt.Printf("  Files: %d\n", pending.FileCount)
		fmt.Printf("  Lines: %d\n", pending.LineCount)
		fmt.Println("\nRun 'git commit' to finalize attribution.")
	} else {
		fmt.Println("No pending AI attribution.")
	}
}
