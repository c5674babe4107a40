// Package attr defines the attribution data model: capture events staged
// between commits, the per-commit attribution record persisted as a git
// note, and the resolution step that turns one into the other.
package attr

import (
	"sort"
	"time"
)

// ContributorKind identifies who authored a line range.
type ContributorKind string

const (
	// KindAI marks lines produced by an AI coding tool
	KindAI ContributorKind = "ai"
	// KindHuman marks lines with no recorded AI involvement
	KindHuman ContributorKind = "human"
)

// CaptureEvent is one recorded edit from a tool invocation. Line numbers are
// 1-indexed; EndLine is exclusive. Events are immutable once staged.
type CaptureEvent struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"` // repo-relative, forward slashes
	StartLine    int       `json:"startLine"`
	EndLine      int       `json:"endLine"`
	Tool         string    `json:"tool"`
	SessionID    string    `json:"sessionId"`
	Prompt       string    `json:"prompt,omitempty"`
	PromptDigest string    `json:"promptDigest,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Lines returns the number of lines the event covers.
func (e CaptureEvent) Lines() int {
	if e.EndLine <= e.StartLine {
		return 0
	}
	return e.EndLine - e.StartLine
}

// PendingSummary describes staged-but-unfinalized capture state for status
// reporting.
type PendingSummary struct {
	HasPending bool   `json:"hasPending"`
	SessionID  string `json:"sessionId,omitempty"`
	EventCount int    `json:"eventCount"`
	FileCount  int    `json:"fileCount"`
	LineCount  int    `json:"lineCount"`
}

// Summarize builds a PendingSummary from staged events. The session id
// reported is that of the most recent event; captures from a newer session
// supersede the label without disturbing the staged data.
func Summarize(events []CaptureEvent) PendingSummary {
	if len(events) == 0 {
		return PendingSummary{}
	}

	files := make(map[string]struct{})
	lines := 0
	session := ""
	var latest time.Time

	for _, e := range events {
		files[e.Path] = struct{}{}
		lines += e.Lines()
		if session == "" || !e.Timestamp.Before(latest) {
			session = e.SessionID
			latest = e.Timestamp
		}
	}

	return PendingSummary{
		HasPending: true,
		SessionID:  session,
		EventCount: len(events),
		FileCount:  len(files),
		LineCount:  lines,
	}
}

// LineAttribution is a contiguous attributed line range within one file.
// Ranges within one record's file never overlap. EndLine is exclusive.
type LineAttribution struct {
	Path         string          `json:"path"`
	StartLine    int             `json:"startLine"`
	EndLine      int             `json:"endLine"`
	Kind         ContributorKind `json:"kind"`
	Tool         string          `json:"tool,omitempty"`
	SessionID    string          `json:"sessionId,omitempty"`
	PromptDigest string          `json:"promptDigest,omitempty"`
}

// Covers reports whether the range includes the given 1-indexed line.
func (a LineAttribution) Covers(line int) bool {
	return line >= a.StartLine && line < a.EndLine
}

// Lines returns the number of lines in the range.
func (a LineAttribution) Lines() int {
	if a.EndLine <= a.StartLine {
		return 0
	}
	return a.EndLine - a.StartLine
}

// sameIdentity reports whether two attributions can be coalesced when their
// ranges touch.
func (a LineAttribution) sameIdentity(b LineAttribution) bool {
	return a.Path == b.Path &&
		a.Kind == b.Kind &&
		a.Tool == b.Tool &&
		a.SessionID == b.SessionID &&
		a.PromptDigest == b.PromptDigest
}

// AttributionRecord is the full attribution for one commit. Exactly zero or
// one record exists per commit; replacement is wholesale, never in-place.
type AttributionRecord struct {
	Version   int               `json:"version"`
	Commit    string            `json:"commit"`
	CreatedAt time.Time         `json:"createdAt"`
	Entries   []LineAttribution `json:"entries"`
}

// FindLine returns the entry covering the given line of path, or nil.
func (r *AttributionRecord) FindLine(path string, line int) *LineAttribution {
	for i := range r.Entries {
		if r.Entries[i].Path == path && r.Entries[i].Covers(line) {
			return &r.Entries[i]
		}
	}
	return nil
}

// EntriesForFile returns the entries for one file, in range order.
func (r *AttributionRecord) EntriesForFile(path string) []LineAttribution {
	var out []LineAttribution
	for _, e := range r.Entries {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// Files returns the distinct attributed paths, sorted.
func (r *AttributionRecord) Files() []string {
	seen := make(map[string]struct{})
	for _, e := range r.Entries {
		seen[e.Path] = struct{}{}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// TotalLines returns the total attributed line count across all entries.
func (r *AttributionRecord) TotalLines() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Lines()
	}
	return total
}

// sortEntries orders entries by path then start line, the canonical order
// for persisted records.
func sortEntries(entries []LineAttribution) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].StartLine < entries[j].StartLine
	})
}
