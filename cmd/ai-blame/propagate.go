package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	aberr "aiblame/internal/errors"
	"aiblame/internal/notes"
	"aiblame/internal/propagate"
)

var (
	propagateStdin  bool
	propagateDryRun bool
)

var propagateCmd = &cobra.Command{
	Use:   "propagate <old> <new>",
	Short: "Carry attribution across a history rewrite",
	Long: `Propagate remaps the old commit's attributed line ranges through the
diff between the two commits and records the surviving ranges on the new
commit. Rewritten lines lose their attribution; propagation never claims
AI authorship for lines it cannot prove survived.

With --stdin it consumes post-rewrite hook input, one "old-sha new-sha"
pair per line, so rebases and amends keep attribution automatically.

Examples:
  ai-blame propagate HEAD@{1} HEAD
  ai-blame propagate abc1234 def5678 --dry-run
  git rev-parse HEAD@{1} HEAD | xargs ai-blame propagate`,
	Args: func(cmd *cobra.Command, args []string) error {
		if propagateStdin {
			if len(args) != 0 {
				return fmt.Errorf("--stdin takes no positional arguments")
			}
			return nil
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	Run: runPropagate,
}

func init() {
	propagateCmd.Flags().BoolVar(&propagateStdin, "stdin", false, "Read rewritten commit pairs from stdin (post-rewrite hook)")
	propagateCmd.Flags().BoolVar(&propagateDryRun, "dry-run", false, "Show what would be propagated without writing")
	rootCmd.AddCommand(propagateCmd)
}

func runPropagate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)
	logger = loggerFromConfig(cfg)

	notesRepo := notes.NewRepository(repo, cfg, logger)
	prop := propagate.New(repo, notesRepo, logger)

	if propagateStdin {
		pairs, err := propagate.ParseRewrittenPairs(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading rewrite pairs: %v\n", err)
			os.Exit(1)
		}
		results, err := prop.PropagateAll(ctx, pairs, propagateDryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error propagating attribution: %v\n", err)
			os.Exit(1)
		}
		for _, res := range results {
			reportPropagation(res, shortRev(res.OldCommit), shortRev(res.NewCommit))
		}
		return
	}

	res, err := prop.Propagate(ctx, args[0], args[1], propagateDryRun)
	if err != nil {
		if aberr.CodeOf(err) == aberr.NoAttribution {
			fmt.Printf("Source commit %s has no attribution.\n", args[0])
			return
		}
		fmt.Fprintf(os.Stderr, "Error propagating attribution: %v\n", err)
		os.Exit(1)
	}
	reportPropagation(res, shortRev(args[0]), shortRev(args[1]))
}

func reportPropagation(res *propagate.Result, oldShort, newShort string) {
	total := res.LinesMapped + res.LinesDropped
	switch {
	case res.Written:
		fmt.Printf("Propagated attribution: %s -> %s (%d of %d lines)\n",
			oldShort, newShort, res.LinesMapped, total)
	case res.DryRun && res.LinesMapped > 0:
		fmt.Printf("Would propagate attribution: %s -> %s (%d of %d lines)\n",
			oldShort, newShort, res.LinesMapped, total)
	default:
		fmt.Printf("No attribution survived the rewrite: %s -> %s\n", oldShort, newShort)
	}
}
