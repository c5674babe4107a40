package attr

import (
	"reflect"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		got := Summarize(nil)
		if got.HasPending {
			t.Error("Summarize(nil).HasPending = true, want false")
		}
	})

	t.Run("counts files and lines", func(t *testing.T) {
		events := []CaptureEvent{
			event("a.go", 1, 5, "claude-code", "s1", base),
			event("a.go", 10, 12, "claude-code", "s1", base.Add(time.Second)),
			event("b.go", 1, 2, "claude-code", "s1", base.Add(2*time.Second)),
		}
		got := Summarize(events)
		want := PendingSummary{HasPending: true, SessionID: "s1", EventCount: 3, FileCount: 2, LineCount: 7}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Summarize() = %+v, want %+v", got, want)
		}
	})

	t.Run("reports latest session", func(t *testing.T) {
		events := []CaptureEvent{
			event("a.go", 1, 2, "claude-code", "old-session", base),
			event("b.go", 1, 2, "claude-code", "new-session", base.Add(time.Hour)),
		}
		if got := Summarize(events); got.SessionID != "new-session" {
			t.Errorf("SessionID = %q, want new-session", got.SessionID)
		}
	})
}

func TestLineAttributionCovers(t *testing.T) {
	a := LineAttribution{Path: "x.go", StartLine: 5, EndLine: 8}

	tests := []struct {
		line int
		want bool
	}{
		{4, false},
		{5, true},
		{7, true},
		{8, false}, // end is exclusive
	}
	for _, tt := range tests {
		if got := a.Covers(tt.line); got != tt.want {
			t.Errorf("Covers(%d) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestRecordFindLine(t *testing.T) {
	rec := NewRecord("c1", time.Now(), []LineAttribution{
		{Path: "a.go", StartLine: 1, EndLine: 4, Kind: KindAI, Tool: "claude-code"},
		{Path: "b.go", StartLine: 10, EndLine: 20, Kind: KindAI, Tool: "cursor"},
	})

	if e := rec.FindLine("b.go", 15); e == nil || e.Tool != "cursor" {
		t.Errorf("FindLine(b.go, 15) = %+v, want cursor entry", e)
	}
	if e := rec.FindLine("a.go", 4); e != nil {
		t.Errorf("FindLine(a.go, 4) = %+v, want nil (exclusive end)", e)
	}
	if e := rec.FindLine("missing.go", 1); e != nil {
		t.Errorf("FindLine(missing.go, 1) = %+v, want nil", e)
	}
}

func TestRecordFilesAndTotals(t *testing.T) {
	rec := NewRecord("c1", time.Now(), []LineAttribution{
		{Path: "b.go", StartLine: 1, EndLine: 3, Kind: KindAI},
		{Path: "a.go", StartLine: 1, EndLine: 2, Kind: KindAI},
		{Path: "b.go", StartLine: 10, EndLine: 14, Kind: KindAI},
	})

	if got := rec.Files(); !reflect.DeepEqual(got, []string{"a.go", "b.go"}) {
		t.Errorf("Files() = %v, want [a.go b.go]", got)
	}
	if got := rec.TotalLines(); got != 7 {
		t.Errorf("TotalLines() = %d, want 7", got)
	}
	if got := len(rec.EntriesForFile("b.go")); got != 2 {
		t.Errorf("EntriesForFile(b.go) count = %d, want 2", got)
	}
}
