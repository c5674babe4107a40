package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	aberr "aiblame/internal/errors"
	"aiblame/internal/notes"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <commit>",
	Short: "Show AI attribution summary for a commit",
	Long: `Show prints the attribution record attached to one commit: which files
and line ranges were AI-authored, by which tool and session.

Examples:
  ai-blame show HEAD
  ai-blame show abc1234 --format=json`,
	Args: cobra.ExactArgs(1),
	Run:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "human", "Output format (json, human, yaml)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) {
	logger := newLogger(showFormat)
	ctx := context.Background()

	repo, cfg := mustDiscover(ctx, logger)
	notesRepo := notes.NewRepository(repo, cfg, logger)

	commit, err := repo.ResolveCommit(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rec, err := notesRepo.Read(ctx, commit)
	if err != nil {
		if aberr.CodeOf(err) == aberr.NoAttribution {
			fmt.Printf("Commit %s has no AI attribution.\n", shortRev(args[0]))
			return
		}
		fmt.Fprintf(os.Stderr, "Error reading attribution: %v\n", err)
		os.Exit(1)
	}

	resp := &ShowResponse{
		AttributionRecord: rec,
		TotalLines:        rec.TotalLines(),
		Files:             rec.Files(),
	}

	output, err := FormatResponse(resp, OutputFormat(showFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
