package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"aiblame/internal/attr"
	"aiblame/internal/gitrepo"
	"aiblame/internal/summary"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML round-trips through JSON first so the yaml output reuses the
// json field names every response type already declares.
func formatYAML(resp interface{}) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("failed to rebind response: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *BlameResponse:
		return formatBlameHuman(v)
	case *ShowResponse:
		return formatShowHuman(v)
	case *summary.Aggregate:
		return formatSummaryHuman(v)
	case *PromptResponse:
		return formatPromptHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatBlameHuman renders one annotated line per file line, grep-friendly
// like git blame itself.
func formatBlameHuman(resp *BlameResponse) (string, error) {
	var b strings.Builder

	whoWidth := 1
	for _, line := range resp.Lines {
		who := line.Author
		if line.Kind == attr.KindAI {
			who = line.Tool
		}
		if len(who) > whoWidth {
			whoWidth = len(who)
		}
	}
	numWidth := len(fmt.Sprintf("%d", len(resp.Lines)))

	for _, line := range resp.Lines {
		who := line.Author
		if line.Kind == attr.KindAI {
			who = line.Tool
		}
		b.WriteString(fmt.Sprintf("%s %-5s %-*s %*d) %s\n",
			gitrepo.ShortSHA(line.Commit), string(line.Kind), whoWidth, who,
			numWidth, line.Number, line.Content))
	}

	if resp.Stats.TotalLines > 0 {
		pct := float64(resp.Stats.AILines) / float64(resp.Stats.TotalLines) * 100
		b.WriteString(fmt.Sprintf("\n%d of %d lines AI-authored (%.1f%%)\n",
			resp.Stats.AILines, resp.Stats.TotalLines, pct))
	}

	if len(resp.Prompts) > 0 {
		b.WriteString("\nPrompts:\n")
		digests := make([]string, 0, len(resp.Prompts))
		for digest := range resp.Prompts {
			digests = append(digests, digest)
		}
		sort.Strings(digests)
		for _, digest := range digests {
			b.WriteString(fmt.Sprintf("  %s  %s\n", shortDigest(digest), promptPreview(resp.Prompts[digest])))
		}
	}

	return b.String(), nil
}

// formatShowHuman formats a ShowResponse in human-readable format
func formatShowHuman(resp *ShowResponse) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Attribution for commit %s\n", gitrepo.ShortSHA(resp.Commit)))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Recorded: %s\n", resp.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	b.WriteString(fmt.Sprintf("Files: %d, AI lines: %d\n\n", len(resp.Files), resp.TotalLines))

	for _, e := range resp.Entries {
		b.WriteString(fmt.Sprintf("  %s:%s  %s (session %s)\n",
			e.Path, displayRange(e.StartLine, e.EndLine), e.Tool, gitrepo.ShortSHA(e.SessionID)))
	}

	return b.String(), nil
}

// formatSummaryHuman formats a summary.Aggregate in human-readable format
func formatSummaryHuman(resp *summary.Aggregate) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("AI attribution summary for %s\n", resp.Range))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Commits: %d total, %d attributed\n", resp.TotalCommits, resp.AttributedCommits))
	b.WriteString(fmt.Sprintf("AI lines: %d\n", resp.AILines))
	b.WriteString(fmt.Sprintf("Sessions: %d\n", len(resp.BySession)))

	if len(resp.ByTool) > 0 {
		b.WriteString("\nBy tool:\n")
		tools := make([]string, 0, len(resp.ByTool))
		for tool := range resp.ByTool {
			tools = append(tools, tool)
		}
		sort.Strings(tools)
		for _, tool := range tools {
			b.WriteString(fmt.Sprintf("  %s: %d lines\n", tool, resp.ByTool[tool]))
		}
	}

	if len(resp.Commits) > 0 {
		b.WriteString("\nBy commit:\n")
		for _, cs := range resp.Commits {
			line := fmt.Sprintf("  %s: %d lines", gitrepo.ShortSHA(cs.Commit), cs.Lines)
			if len(cs.Tools) > 0 {
				line += fmt.Sprintf(" (%s)", strings.Join(cs.Tools, ", "))
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String(), nil
}

// formatPromptHuman formats a PromptResponse in human-readable format
func formatPromptHuman(resp *PromptResponse) (string, error) {
	if resp.Kind != attr.KindAI {
		return fmt.Sprintf("Line %d of %s is not AI-attributed.\n", resp.Line, resp.File), nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Prompt for %s:%d (%s, commit %s)\n\n",
		resp.File, resp.Line, resp.Tool, gitrepo.ShortSHA(resp.Commit)))

	switch {
	case resp.PromptStored:
		b.WriteString(strings.TrimRight(resp.Prompt, "\n") + "\n")
	case resp.PromptDigest != "":
		b.WriteString(fmt.Sprintf("Prompt text not available locally (digest %s).\n", resp.PromptDigest))
	default:
		b.WriteString("No prompt was recorded for this line.\n")
	}
	return b.String(), nil
}

// displayRange renders a half-open [start,end) range inclusively for humans.
func displayRange(start, end int) string {
	if end-start <= 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end-1)
}

// shortDigest truncates a prompt digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// promptPreview reduces prompt text to its first line, truncated.
func promptPreview(text string) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if len(line) > 70 {
		line = line[:67] + "..."
	}
	return line
}
