package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiblame/internal/notes"
)

var copyNotesDryRun bool

var copyNotesCmd = &cobra.Command{
	Use:   "copy-notes <source> <target>",
	Short: "Copy AI attribution from one commit to another",
	Long: `Copy-notes attaches the source commit's attribution record verbatim to
the target commit. Use it after history rewrites that change commit
metadata but not content, such as a reworded amend; for rewrites that
moved lines, use propagate instead.

Examples:
  ai-blame copy-notes abc1234 def5678
  ai-blame copy-notes HEAD@{1} HEAD --dry-run`,
	Args: cobra.ExactArgs(2),
	Run:  runCopyNotes,
}

func init() {
	copyNotesCmd.Flags().BoolVar(&copyNotesDryRun, "dry-run", false, "Show what would be copied without copying")
	rootCmd.AddCommand(copyNotesCmd)
}

func runCopyNotes(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)
	notesRepo := notes.NewRepository(repo, cfg, logger)

	source, err := repo.ResolveCommit(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	target, err := repo.ResolveCommit(ctx, args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	has, err := notesRepo.Has(ctx, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading attribution: %v\n", err)
		os.Exit(1)
	}
	if !has {
		fmt.Printf("Source commit %s has no attribution.\n", args[0])
		return
	}

	if copyNotesDryRun {
		fmt.Printf("Would copy attribution: %s -> %s\n", shortRev(args[0]), shortRev(args[1]))
		return
	}

	if _, err := notesRepo.Copy(ctx, source, target); err != nil {
		fmt.Fprintf(os.Stderr, "Error copying attribution: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Copied attribution: %s -> %s\n", shortRev(args[0]), shortRev(args[1]))
}
