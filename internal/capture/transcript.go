package capture

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// transcriptLine is the subset of a session transcript entry needed to
// recover prompt text. Transcripts are JSONL, one entry per line, with
// message content either a plain string or a list of typed blocks.
type transcriptLine struct {
	Type    string `json:"type"`
	IsMeta  bool   `json:"isMeta"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LastUserPrompt scans a session transcript and returns the text of the
// most recent user message. A missing or unreadable transcript yields an
// empty prompt; capture proceeds without one.
func LastUserPrompt(transcriptPath string) string {
	if transcriptPath == "" {
		return ""
	}
	file, err := os.Open(transcriptPath)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Transcript entries can carry large pasted content.
	scanner.Buffer(make([]byte, 0, 1024), 8*1024*1024)

	last := ""
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry transcriptLine
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Type != "user" || entry.IsMeta {
			continue
		}
		if entry.Message.Role != "" && entry.Message.Role != "user" {
			continue
		}
		if text := promptText(entry.Message.Content); text != "" {
			last = text
		}
	}
	return last
}

// promptText extracts visible prompt text from a message content field.
// Tool results and command wrapper entries are skipped.
func promptText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(content, &asString); err == nil {
		return cleanPrompt(asString)
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if text := cleanPrompt(block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanPrompt drops synthetic entries such as command wrappers.
func cleanPrompt(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<") {
		return ""
	}
	return trimmed
}
