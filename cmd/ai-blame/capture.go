package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aiblame/internal/attr"
	"aiblame/internal/capture"
	"aiblame/internal/policy"
	"aiblame/internal/staging"
)

var (
	captureStdin   bool
	captureFile    string
	captureLines   string
	captureTool    string
	captureSession string
	capturePrompt  string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a file change (called by the agent hook)",
	Long: `Capture records which lines an AI tool just wrote. It is normally
invoked from a PostToolUse hook with --stdin, reading the hook payload
from standard input; the user prompt is pulled from the session
transcript. Captured ranges stay pending until the next commit, when the
post-commit hook folds them into that commit's attribution note.

--file records a range by hand, for tools without hook integration.

Examples:
  ai-blame capture --stdin
  ai-blame capture --file main.go --lines 10:20 --tool my-agent`,
	Args: cobra.NoArgs,
	Run:  runCapture,
}

func init() {
	captureCmd.Flags().BoolVar(&captureStdin, "stdin", false, "Read hook input from stdin")
	captureCmd.Flags().StringVar(&captureFile, "file", "", "File path (if not using stdin)")
	captureCmd.Flags().StringVar(&captureLines, "lines", "", "Line range START:END, end exclusive (default: whole file)")
	captureCmd.Flags().StringVar(&captureTool, "tool", "", "Tool name")
	captureCmd.Flags().StringVar(&captureSession, "session", "", "Session identifier")
	captureCmd.Flags().StringVar(&capturePrompt, "prompt", "", "Prompt text")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) {
	if !captureStdin && captureFile == "" {
		fmt.Fprintln(os.Stderr, "Capture requires --stdin flag for hook input")
		os.Exit(1)
	}

	ctx := context.Background()
	logger := newLogger("human")
	repo, cfg := mustDiscover(ctx, logger)
	logger = loggerFromConfig(cfg)

	pol, err := policy.Load(repo.Root())
	if err != nil {
		logger.Warn("Failed to load attribution policy", map[string]interface{}{
			"error": err.Error(),
		})
		pol = &policy.Policy{}
	}
	builder := capture.NewBuilder(repo.Root(), pol, logger)
	now := time.Now()

	var events []attr.CaptureEvent
	if captureStdin {
		payload, err := capture.ParsePayload(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading hook payload: %v\n", err)
			os.Exit(1)
		}
		events, err = builder.FromPayload(payload, captureTool, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building capture events: %v\n", err)
			os.Exit(1)
		}

		prompt := capturePrompt
		if prompt == "" {
			prompt = capture.LastUserPrompt(payload.TranscriptPath)
		}
		for i := range events {
			events[i].Prompt = prompt
		}
	} else {
		start, end, err := parseLineRange(captureLines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		event, err := builder.DirectEvent(captureFile, start, end, captureTool, captureSession, capturePrompt, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error capturing %s: %v\n", captureFile, err)
			os.Exit(1)
		}
		events = append(events, *event)
	}

	if len(events) == 0 {
		logger.Debug("Nothing to capture", nil)
		return
	}

	area := staging.NewArea(repo.GitDir(), cfg, logger)
	if err := area.Append(ctx, events); err != nil {
		fmt.Fprintf(os.Stderr, "Error staging capture: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Captured edit", map[string]interface{}{
		"events": len(events),
		"file":   events[0].Path,
	})
}

// parseLineRange parses a START:END flag value, end exclusive. An empty
// value means the whole file and is returned as a zero range.
func parseLineRange(spec string) (int, int, error) {
	if spec == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid line range %q, expected START:END", spec)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start line %q", parts[0])
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end line %q", parts[1])
	}
	if start < 1 || end <= start {
		return 0, 0, fmt.Errorf("invalid line range %d:%d", start, end)
	}
	return start, end, nil
}
