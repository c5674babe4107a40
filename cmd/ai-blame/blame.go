package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aiblame/internal/attr"
	"aiblame/internal/blame"
	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/gitrepo"
	"aiblame/internal/logging"
	"aiblame/internal/notes"
	"aiblame/internal/paths"
	"aiblame/internal/promptstore"
)

var (
	blameRev        string
	blameFormat     string
	blameShowPrompt bool
)

var blameCmd = &cobra.Command{
	Use:   "blame <file>",
	Short: "Show AI attribution for each line of a file",
	Long: `Blame annotates every line of a file with its introducing commit and
whether that line was AI-authored. AI lines carry the tool and session
that produced them; other lines show the commit author.

Examples:
  ai-blame blame src/main.go
  ai-blame blame src/main.go --rev v1.2.0
  ai-blame blame src/main.go --format=json
  ai-blame blame src/main.go --show-prompt`,
	Args: cobra.ExactArgs(1),
	Run:  runBlame,
}

func init() {
	blameCmd.Flags().StringVar(&blameRev, "rev", "HEAD", "Revision to blame at")
	blameCmd.Flags().StringVar(&blameFormat, "format", "human", "Output format (json, human, yaml)")
	blameCmd.Flags().BoolVar(&blameShowPrompt, "show-prompt", false, "Include stored prompt text for AI lines")
	rootCmd.AddCommand(blameCmd)
}

func runBlame(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(blameFormat)
	ctx := context.Background()

	repo, cfg := mustDiscover(ctx, logger)
	notesRepo := notes.NewRepository(repo, cfg, logger)
	engine := blame.NewEngine(repo, notesRepo, logger)

	path := repoRelative(repo, args[0])
	result, err := engine.File(ctx, blameRev, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error blaming %s: %v\n", path, err)
		os.Exit(1)
	}

	resp := &BlameResponse{Result: result}
	if blameShowPrompt {
		resp.Prompts = collectPrompts(ctx, repo, cfg, logger, result.Lines)
	}

	output, err := FormatResponse(resp, OutputFormat(blameFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("Blame completed", map[string]interface{}{
		"path":     path,
		"lines":    result.Stats.TotalLines,
		"aiLines":  result.Stats.AILines,
		"duration": time.Since(start).Milliseconds(),
	})
}

// collectPrompts gathers stored prompt text for every distinct digest among
// AI lines. Digests whose text was never stored locally map to a marker
// instead of failing the command.
func collectPrompts(ctx context.Context, repo *gitrepo.Repo, cfg *config.Config, logger *logging.Logger, lines []blame.Line) map[string]string {
	digests := make(map[string]bool)
	for _, line := range lines {
		if line.Kind == attr.KindAI && line.PromptDigest != "" {
			digests[line.PromptDigest] = true
		}
	}
	if len(digests) == 0 {
		return nil
	}

	store, err := promptstore.Open(repo.GitDir(), cfg, logger)
	if err != nil {
		logger.Warn("Prompt store unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	defer store.Close()

	prompts := make(map[string]string, len(digests))
	for digest := range digests {
		text, err := store.Get(ctx, digest)
		if err != nil {
			if aberr.CodeOf(err) == aberr.PromptMissing {
				prompts[digest] = "(prompt text not available locally)"
				continue
			}
			logger.Warn("Failed to read prompt", map[string]interface{}{
				"digest": digest,
				"error":  err.Error(),
			})
			continue
		}
		prompts[digest] = text
	}
	return prompts
}

// repoRelative resolves a CLI path argument to repo-relative form. Paths
// that do not exist in the worktree pass through unchanged so blame still
// works on files that only exist at older revisions.
func repoRelative(repo *gitrepo.Repo, arg string) string {
	abs := arg
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(mustGetwd(), arg)
	}
	if _, err := os.Stat(abs); err != nil {
		return filepath.ToSlash(arg)
	}
	rel, err := paths.CanonicalizePath(abs, repo.Root())
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(arg)
	}
	return rel
}
