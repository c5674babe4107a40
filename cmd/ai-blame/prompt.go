package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aiblame/internal/attr"
	"aiblame/internal/blame"
	aberr "aiblame/internal/errors"
	"aiblame/internal/notes"
	"aiblame/internal/promptstore"
)

var (
	promptLine   int
	promptRev    string
	promptFormat string
)

var promptCmd = &cobra.Command{
	Use:   "prompt <file>",
	Short: "View the prompt that generated specific lines",
	Long: `Prompt looks up the attribution of one line and prints the user prompt
that produced it. Prompt text is stored locally per clone; a line whose
prompt was captured on another machine reports its digest instead.

Examples:
  ai-blame prompt src/main.go --line 42
  ai-blame prompt src/main.go --line 42 --rev HEAD~3`,
	Args: cobra.ExactArgs(1),
	Run:  runPrompt,
}

func init() {
	promptCmd.Flags().IntVar(&promptLine, "line", 0, "Line number (1-indexed)")
	promptCmd.Flags().StringVar(&promptRev, "rev", "HEAD", "Revision to resolve the line at")
	promptCmd.Flags().StringVar(&promptFormat, "format", "human", "Output format (json, human, yaml)")
	_ = promptCmd.MarkFlagRequired("line")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	logger := newLogger(promptFormat)
	ctx := context.Background()

	repo, cfg := mustDiscover(ctx, logger)
	notesRepo := notes.NewRepository(repo, cfg, logger)
	engine := blame.NewEngine(repo, notesRepo, logger)

	path := repoRelative(repo, args[0])
	line, err := engine.Line(ctx, promptRev, path, promptLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving %s:%d: %v\n", path, promptLine, err)
		os.Exit(1)
	}

	resp := &PromptResponse{
		File:         path,
		Line:         promptLine,
		Commit:       line.Commit,
		Kind:         line.Kind,
		Tool:         line.Tool,
		SessionID:    line.SessionID,
		PromptDigest: line.PromptDigest,
	}

	if line.Kind == attr.KindAI && line.PromptDigest != "" {
		store, err := promptstore.Open(repo.GitDir(), cfg, logger)
		if err != nil {
			logger.Warn("Prompt store unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer store.Close()
			text, err := store.Get(ctx, line.PromptDigest)
			switch {
			case err == nil:
				resp.Prompt = text
				resp.PromptStored = true
			case aberr.CodeOf(err) == aberr.PromptMissing:
				// Reported distinctly by the formatter.
			default:
				fmt.Fprintf(os.Stderr, "Error reading prompt: %v\n", err)
				os.Exit(1)
			}
		}
	}

	output, err := FormatResponse(resp, OutputFormat(promptFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
