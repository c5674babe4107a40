package propagate

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"aiblame/internal/attr"
	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/gitrepo"
	"aiblame/internal/notes"
	"aiblame/internal/testutil"
)

type fixture struct {
	repo  *testutil.Repo
	git   *gitrepo.Repo
	notes *notes.Repository
	prop  *Propagator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := testutil.NewRepo(t)
	repo.WriteFile("README.md", "seed\n")
	repo.Commit("initial")

	cfg := config.DefaultConfig()
	logger := testutil.QuietLogger()

	git, err := gitrepo.Discover(context.Background(), repo.Root, cfg, logger)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	notesRepo := notes.NewRepository(git, cfg, logger)

	return &fixture{
		repo:  repo,
		git:   git,
		notes: notesRepo,
		prop:  New(git, notesRepo, logger),
	}
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func (f *fixture) writeRecord(t *testing.T, commit string, entries ...attr.LineAttribution) *attr.AttributionRecord {
	t.Helper()
	rec := attr.NewRecord(commit, time.Now(), entries)
	if err := f.notes.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return rec
}

func TestPropagateTruncatesRewrittenRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("app.go", numberedLines(20))
	old := f.repo.Commit("ai change")
	f.writeRecord(t, old, attr.LineAttribution{
		Path: "app.go", StartLine: 5, EndLine: 15,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1", PromptDigest: "d1",
	})

	// Rewrite lines 10-14; lines 5-9 of the attributed range survive.
	content := strings.Split(numberedLines(20), "\n")
	for i := 9; i < 14; i++ {
		content[i] = "rewritten"
	}
	f.repo.WriteFile("app.go", strings.Join(content, "\n"))
	rewritten := f.repo.Commit("rewrite")

	res, err := f.prop.Propagate(ctx, old, rewritten, false)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if !res.Written {
		t.Fatal("expected record to be written")
	}
	if res.LinesMapped != 5 || res.LinesDropped != 5 {
		t.Errorf("mapped/dropped = %d/%d, want 5/5", res.LinesMapped, res.LinesDropped)
	}

	got, err := f.notes.Read(ctx, rewritten)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := []attr.LineAttribution{{
		Path: "app.go", StartLine: 5, EndLine: 10,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1", PromptDigest: "d1",
	}}
	if !reflect.DeepEqual(got.Entries, want) {
		t.Errorf("propagated entries = %+v, want %+v", got.Entries, want)
	}
	if got.Commit != rewritten {
		t.Errorf("record commit = %s, want %s", got.Commit, rewritten)
	}
}

func TestPropagateShiftsPastInsertion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("app.go", numberedLines(6))
	old := f.repo.Commit("ai change")
	f.writeRecord(t, old, attr.LineAttribution{
		Path: "app.go", StartLine: 3, EndLine: 5,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1",
	})

	// Two lines inserted after line 1 push the range down without touching it.
	lines := strings.Split(strings.TrimRight(numberedLines(6), "\n"), "\n")
	inserted := append([]string{lines[0], "new a", "new b"}, lines[1:]...)
	f.repo.WriteFile("app.go", strings.Join(inserted, "\n")+"\n")
	rewritten := f.repo.Commit("insert above")

	res, err := f.prop.Propagate(ctx, old, rewritten, false)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if res.LinesMapped != 2 || res.LinesDropped != 0 {
		t.Errorf("mapped/dropped = %d/%d, want 2/0", res.LinesMapped, res.LinesDropped)
	}

	got, err := f.notes.Read(ctx, rewritten)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].StartLine != 5 || got.Entries[0].EndLine != 7 {
		t.Errorf("entries = %+v, want single [5,7) range", got.Entries)
	}
}

func TestPropagateUnchangedFileCarriesOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("app.go", numberedLines(4))
	old := f.repo.Commit("ai change")
	rec := f.writeRecord(t, old, attr.LineAttribution{
		Path: "app.go", StartLine: 1, EndLine: 4,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1",
	})

	f.repo.WriteFile("other.txt", "unrelated\n")
	rewritten := f.repo.Commit("unrelated change")

	res, err := f.prop.Propagate(ctx, old, rewritten, false)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if res.LinesMapped != 3 {
		t.Errorf("LinesMapped = %d, want 3", res.LinesMapped)
	}

	got, err := f.notes.Read(ctx, rewritten)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(got.Entries, rec.Entries) {
		t.Errorf("entries = %+v, want %+v", got.Entries, rec.Entries)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want preserved %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestPropagateFollowsRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("app.go", numberedLines(10))
	old := f.repo.Commit("ai change")
	f.writeRecord(t, old, attr.LineAttribution{
		Path: "app.go", StartLine: 2, EndLine: 5,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1",
	})

	f.repo.Git("mv", "app.go", "renamed.go")
	rewritten := f.repo.Commit("rename")

	res, err := f.prop.Propagate(ctx, old, rewritten, false)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if !res.Written {
		t.Fatal("expected record to be written")
	}

	got, err := f.notes.Read(ctx, rewritten)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("entries = %+v", got.Entries)
	}
	e := got.Entries[0]
	if e.Path != "renamed.go" || e.StartLine != 2 || e.EndLine != 5 {
		t.Errorf("entry = %+v, want renamed.go [2,5)", e)
	}
}

func TestPropagateDeletedFileDropsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("app.go", numberedLines(5))
	old := f.repo.Commit("ai change")
	f.writeRecord(t, old, attr.LineAttribution{
		Path: "app.go", StartLine: 1, EndLine: 6,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1",
	})

	f.repo.Git("rm", "--quiet", "app.go")
	rewritten := f.repo.Commit("delete app.go")

	res, err := f.prop.Propagate(ctx, old, rewritten, false)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if res.Written {
		t.Error("nothing should be written when every line drops")
	}
	if res.LinesMapped != 0 || res.LinesDropped != 5 {
		t.Errorf("mapped/dropped = %d/%d, want 0/5", res.LinesMapped, res.LinesDropped)
	}

	if has, err := f.notes.Has(ctx, rewritten); err != nil || has {
		t.Errorf("Has() = %v, %v; want false, nil", has, err)
	}
}

func TestPropagateMissingSourceRecord(t *testing.T) {
	f := newFixture(t)

	f.repo.WriteFile("app.go", "x\n")
	old := f.repo.Commit("no record")
	f.repo.WriteFile("app.go", "y\n")
	rewritten := f.repo.Commit("rewrite")

	_, err := f.prop.Propagate(context.Background(), old, rewritten, false)
	if aberr.CodeOf(err) != aberr.NoAttribution {
		t.Errorf("CodeOf(err) = %v, want NoAttribution", aberr.CodeOf(err))
	}
}

func TestPropagateDryRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("app.go", numberedLines(4))
	old := f.repo.Commit("ai change")
	f.writeRecord(t, old, attr.LineAttribution{
		Path: "app.go", StartLine: 1, EndLine: 3,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1",
	})

	f.repo.WriteFile("app.go", "intro\n"+numberedLines(4))
	rewritten := f.repo.Commit("insert intro")

	res, err := f.prop.Propagate(ctx, old, rewritten, true)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if res.Written {
		t.Error("dry run must not write")
	}
	if len(res.Entries) != 1 || res.Entries[0].StartLine != 2 {
		t.Errorf("dry-run entries = %+v, want shifted [2,4)", res.Entries)
	}

	if has, err := f.notes.Has(ctx, rewritten); err != nil || has {
		t.Errorf("Has() after dry run = %v, %v; want false, nil", has, err)
	}
}

func TestPropagateAllSkipsRecordlessPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.WriteFile("a.go", numberedLines(3))
	oldA := f.repo.Commit("attributed")
	f.writeRecord(t, oldA, attr.LineAttribution{
		Path: "a.go", StartLine: 1, EndLine: 4,
		Kind: attr.KindAI, Tool: "claude-code", SessionID: "s1",
	})

	f.repo.WriteFile("b.go", "plain\n")
	oldB := f.repo.Commit("plain commit")

	f.repo.WriteFile("c.go", "rewrite target\n")
	newTip := f.repo.Commit("rewrite target")

	results, err := f.prop.PropagateAll(ctx, []Pair{
		{Old: oldA, New: newTip},
		{Old: oldB, New: newTip},
	}, false)
	if err != nil {
		t.Fatalf("PropagateAll() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (recordless pair skipped)", len(results))
	}
	if results[0].OldCommit != oldA || !results[0].Written {
		t.Errorf("result = %+v", results[0])
	}
}

func TestMapLine(t *testing.T) {
	modify := []gitrepo.HunkDelta{{OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1}}
	insert := []gitrepo.HunkDelta{{OldStart: 5, OldLines: 0, NewStart: 6, NewLines: 2}}
	remove := []gitrepo.HunkDelta{{OldStart: 5, OldLines: 2, NewStart: 4, NewLines: 0}}
	multi := []gitrepo.HunkDelta{
		{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 3},
		{OldStart: 8, OldLines: 2, NewStart: 10, NewLines: 0},
	}

	tests := []struct {
		name   string
		hunks  []gitrepo.HunkDelta
		line   int
		want   int
		mapped bool
	}{
		{"before modification", modify, 4, 4, true},
		{"modified line drops", modify, 5, 0, false},
		{"after modification", modify, 6, 6, true},
		{"insertion point itself", insert, 5, 5, true},
		{"after insertion shifts down", insert, 6, 8, true},
		{"before removal", remove, 4, 4, true},
		{"removed line drops", remove, 5, 0, false},
		{"after removal shifts up", remove, 7, 5, true},
		{"between two hunks", multi, 5, 7, true},
		{"inside second hunk drops", multi, 9, 0, false},
		{"after both hunks", multi, 10, 10, true},
		{"no hunks is identity", nil, 12, 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MapLine(tt.hunks, tt.line)
			if ok != tt.mapped || (ok && got != tt.want) {
				t.Errorf("MapLine(%d) = %d, %v; want %d, %v", tt.line, got, ok, tt.want, tt.mapped)
			}
		})
	}
}

func TestParseRewrittenPairs(t *testing.T) {
	input := "aaa111 bbb222\n\nccc333 ddd444 extra-info\n"
	pairs, err := ParseRewrittenPairs(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseRewrittenPairs() error = %v", err)
	}
	want := []Pair{{Old: "aaa111", New: "bbb222"}, {Old: "ccc333", New: "ddd444"}}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %+v, want %+v", pairs, want)
	}

	if _, err := ParseRewrittenPairs(strings.NewReader("onlyone\n")); err == nil {
		t.Error("expected error for a line with a single field")
	}
}
