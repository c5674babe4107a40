// Package capture turns coding-agent hook payloads and direct flag input
// into staged capture events. It understands the PostToolUse JSON that
// Claude Code pipes to hooks, including the structured patch hunks that
// carry precise edited line ranges.
package capture

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"aiblame/internal/attr"
	aberr "aiblame/internal/errors"
	"aiblame/internal/logging"
	"aiblame/internal/paths"
	"aiblame/internal/policy"
)

// HookPayload mirrors the PostToolUse JSON an agent writes to the hook's
// stdin. Fields the capture path does not use are left out.
type HookPayload struct {
	SessionID      string       `json:"session_id"`
	TranscriptPath string       `json:"transcript_path"`
	Cwd            string       `json:"cwd"`
	HookEventName  string       `json:"hook_event_name"`
	ToolName       string       `json:"tool_name"`
	ToolInput      ToolInput    `json:"tool_input"`
	ToolResponse   ToolResponse `json:"tool_response"`
}

// ToolInput is the file-editing subset of a tool's input parameters.
type ToolInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// ToolResponse carries the edit result. StructuredPatch is present for
// Edit/MultiEdit-style tools and locates the changed lines exactly.
type ToolResponse struct {
	FilePath        string      `json:"filePath"`
	StructuredPatch []PatchHunk `json:"structuredPatch"`
}

// PatchHunk is one hunk of a structured patch, in unified-diff coordinates.
type PatchHunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Lines    []string `json:"lines"`
}

// ParsePayload decodes one hook payload from a reader.
func ParsePayload(r io.Reader) (*HookPayload, error) {
	var payload HookPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, aberr.New(aberr.InternalError, "cannot parse hook payload", err)
	}
	return &payload, nil
}

// Builder derives capture events for one repository.
type Builder struct {
	repoRoot string
	policy   *policy.Policy
	logger   *logging.Logger
}

// NewBuilder returns a Builder bound to a repo root and policy.
func NewBuilder(repoRoot string, pol *policy.Policy, logger *logging.Logger) *Builder {
	return &Builder{repoRoot: repoRoot, policy: pol, logger: logger}
}

// FromPayload converts a hook payload into capture events. Payloads for
// tools that touched no file, files outside the repository, and ignored
// paths all yield no events and no error. toolOverride, when non-empty,
// names the capturing tool regardless of payload and policy.
func (b *Builder) FromPayload(payload *HookPayload, toolOverride string, now time.Time) ([]attr.CaptureEvent, error) {
	filePath := payload.ToolInput.FilePath
	if filePath == "" {
		filePath = payload.ToolResponse.FilePath
	}
	if filePath == "" {
		b.logger.Debug("hook payload has no file path", map[string]interface{}{
			"tool": payload.ToolName,
		})
		return nil, nil
	}

	rel, ok := b.relativePath(filePath, payload.Cwd)
	if !ok {
		b.logger.Debug("edited file is outside the repository", map[string]interface{}{
			"path": filePath,
		})
		return nil, nil
	}
	if b.policy.Ignored(rel) {
		b.logger.Debug("path excluded by policy", map[string]interface{}{"path": rel})
		return nil, nil
	}

	tool := toolOverride
	if tool == "" {
		tool = b.policy.ResolveTool(payload.ToolName)
	}
	session := payload.SessionID
	if session == "" {
		session = uuid.NewString()
	}

	ranges := b.editedRanges(payload, rel)
	events := make([]attr.CaptureEvent, 0, len(ranges))
	for _, rng := range ranges {
		events = append(events, attr.CaptureEvent{
			ID:        uuid.NewString(),
			Path:      rel,
			StartLine: rng[0],
			EndLine:   rng[1],
			Tool:      tool,
			SessionID: session,
			Timestamp: now,
		})
	}
	return events, nil
}

// DirectEvent builds a capture event from explicit values, for the
// flag-driven capture path. A missing session id gets a generated one; a
// zero line range means the whole file as it exists on disk.
func (b *Builder) DirectEvent(file string, start, end int, tool, session, prompt string, now time.Time) (*attr.CaptureEvent, error) {
	rel, ok := b.relativePath(file, "")
	if !ok {
		return nil, aberr.Newf(aberr.InternalError, nil, "%s is outside the repository", file)
	}
	if start < 1 || end <= start {
		n, err := countFileLines(filepath.Join(b.repoRoot, filepath.FromSlash(rel)))
		if err != nil {
			return nil, aberr.Newf(aberr.InternalError, err, "cannot determine line count of %s", rel)
		}
		start, end = 1, n+1
	}
	if session == "" {
		session = uuid.NewString()
	}
	return &attr.CaptureEvent{
		ID:        uuid.NewString(),
		Path:      rel,
		StartLine: start,
		EndLine:   end,
		Tool:      tool,
		SessionID: session,
		Prompt:    prompt,
		Timestamp: now,
	}, nil
}

// relativePath canonicalizes a possibly relative file path against the
// repo root. ok is false for paths that escape the repository.
func (b *Builder) relativePath(file, cwd string) (string, bool) {
	abs := file
	if !filepath.IsAbs(abs) {
		base := cwd
		if base == "" {
			base = b.repoRoot
		}
		abs = filepath.Join(base, abs)
	}
	rel, err := paths.CanonicalizePath(abs, b.repoRoot)
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

// editedRanges extracts new-side [start,end) line ranges from a payload,
// most precise source first: structured patch hunks, then Write-tool
// content, then the file on disk.
func (b *Builder) editedRanges(payload *HookPayload, rel string) [][2]int {
	var ranges [][2]int
	for _, hunk := range payload.ToolResponse.StructuredPatch {
		if hunk.NewLines <= 0 {
			// Pure deletion leaves nothing on the new side to attribute.
			continue
		}
		start := hunk.NewStart
		if start < 1 {
			start = 1
		}
		ranges = append(ranges, [2]int{start, start + hunk.NewLines})
	}
	if len(ranges) > 0 {
		return ranges
	}

	if payload.ToolInput.Content != "" {
		n := countLines(payload.ToolInput.Content)
		if n > 0 {
			return [][2]int{{1, n + 1}}
		}
	}

	n, err := countFileLines(filepath.Join(b.repoRoot, filepath.FromSlash(rel)))
	if err != nil || n == 0 {
		b.logger.Debug("no usable line range in payload", map[string]interface{}{
			"path": rel,
			"tool": payload.ToolName,
		})
		return nil
	}
	return [][2]int{{1, n + 1}}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

func countFileLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return countLines(string(data)), nil
}
