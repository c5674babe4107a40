package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"aiblame/internal/notes"
	"aiblame/internal/summary"
)

var summaryFormat string

var summaryCmd = &cobra.Command{
	Use:   "summary <range>",
	Short: "Generate summary for a range of commits (useful for PRs)",
	Long: `Summary aggregates attribution across a commit range: how many lines
were AI-authored, by which tools, across which commits. The range uses
rev-list syntax, so A..B, A...B, and a single revision all work.

Examples:
  ai-blame summary main..feature
  ai-blame summary HEAD~10..HEAD --format=json
  ai-blame summary v1.0.0...v1.1.0`,
	Args: cobra.ExactArgs(1),
	Run:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "human", "Output format (json, human, yaml)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(summaryFormat)
	ctx := context.Background()

	repo, cfg := mustDiscover(ctx, logger)
	notesRepo := notes.NewRepository(repo, cfg, logger)
	agg := summary.New(repo, notesRepo, logger)

	result, err := agg.Summarize(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error summarizing %s: %v\n", args[0], err)
		os.Exit(1)
	}

	output, err := FormatResponse(result, OutputFormat(summaryFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("Summary completed", map[string]interface{}{
		"range":    args[0],
		"commits":  result.TotalCommits,
		"duration": time.Since(start).Milliseconds(),
	})
}
