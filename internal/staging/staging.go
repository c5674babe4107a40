// Package staging persists capture events between tool invocations and the
// commit that finalizes them. Events live as one JSON document per line in
// an append-only file under the repository's git directory, serialized
// across processes by an exclusive flock on a sidecar file.
package staging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"aiblame/internal/attr"
	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/logging"
)

const (
	pendingFileName = "pending.jsonl"
	lockFileName    = "pending.lock"
)

// Area is the staging store rooted in the repository's state directory.
type Area struct {
	dir         string
	logger      *logging.Logger
	lockTimeout time.Duration
}

// NewArea returns the staging area for a git directory. Nothing is created
// on disk until the first append.
func NewArea(gitDir string, cfg *config.Config, logger *logging.Logger) *Area {
	timeout := 5 * time.Second
	if cfg != nil && cfg.Staging.LockTimeoutMs > 0 {
		timeout = time.Duration(cfg.Staging.LockTimeoutMs) * time.Millisecond
	}
	return &Area{
		dir:         config.StateDir(gitDir),
		logger:      logger,
		lockTimeout: timeout,
	}
}

func (a *Area) pendingPath() string {
	return filepath.Join(a.dir, pendingFileName)
}

func (a *Area) lockPath() string {
	return filepath.Join(a.dir, lockFileName)
}

// Append stages events. Each event becomes one line; the file is synced
// before the lock drops so a finalize racing a capture sees whole lines.
func (a *Area) Append(ctx context.Context, events []attr.CaptureEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return aberr.New(aberr.InternalError, "cannot create staging directory", err)
	}

	guard, err := acquireLock(ctx, a.lockPath(), a.lockTimeout, a.logger)
	if err != nil {
		return err
	}
	defer guard.Release()

	f, err := os.OpenFile(a.pendingPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return aberr.New(aberr.InternalError, "cannot open staging file", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return aberr.New(aberr.InternalError, "cannot encode capture event", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return aberr.New(aberr.InternalError, "cannot append capture events", err)
	}
	if err := f.Sync(); err != nil {
		return aberr.New(aberr.InternalError, "cannot sync staging file", err)
	}

	a.logger.Debug("staged capture events", map[string]interface{}{
		"count": len(events),
		"file":  a.pendingPath(),
	})
	return nil
}

// List returns the staged events without consuming them. A missing staging
// file is an empty state.
func (a *Area) List(ctx context.Context) ([]attr.CaptureEvent, error) {
	guard, err := acquireLock(ctx, a.lockPath(), a.lockTimeout, a.logger)
	if err != nil {
		return nil, err
	}
	defer guard.Release()
	return a.readEvents()
}

// DrainAll hands every staged event to fn and deletes the staging file only
// after fn returns nil. A failing fn leaves the staged events in place for
// the next attempt.
func (a *Area) DrainAll(ctx context.Context, fn func([]attr.CaptureEvent) error) error {
	guard, err := acquireLock(ctx, a.lockPath(), a.lockTimeout, a.logger)
	if err != nil {
		return err
	}
	defer guard.Release()

	events, err := a.readEvents()
	if err != nil {
		return err
	}
	if err := fn(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := os.Remove(a.pendingPath()); err != nil && !os.IsNotExist(err) {
		return aberr.New(aberr.InternalError, "cannot clear drained staging file", err)
	}
	a.logger.Debug("drained staging area", map[string]interface{}{"events": len(events)})
	return nil
}

// Clear discards all staged events. It reports whether anything was
// staged.
func (a *Area) Clear(ctx context.Context) (bool, error) {
	guard, err := acquireLock(ctx, a.lockPath(), a.lockTimeout, a.logger)
	if err != nil {
		return false, err
	}
	defer guard.Release()

	if err := os.Remove(a.pendingPath()); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, aberr.New(aberr.InternalError, "cannot clear staging file", err)
	}
	return true, nil
}

// Summary reports pending state for status output.
func (a *Area) Summary(ctx context.Context) (attr.PendingSummary, error) {
	events, err := a.List(ctx)
	if err != nil {
		return attr.PendingSummary{}, err
	}
	return attr.Summarize(events), nil
}

// readEvents parses the staging file. Any malformed line, including a torn
// final line from a crashed writer, surfaces as corruption rather than
// being dropped.
func (a *Area) readEvents() ([]attr.CaptureEvent, error) {
	f, err := os.Open(a.pendingPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, aberr.New(aberr.InternalError, "cannot open staging file", err)
	}
	defer f.Close()

	var events []attr.CaptureEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event attr.CaptureEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, aberr.Newf(aberr.StagingCorrupt, err,
				"staging file %s is corrupt at line %d", a.pendingPath(), lineNo)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, aberr.New(aberr.StagingCorrupt, "cannot read staging file", err)
	}
	return events, nil
}
