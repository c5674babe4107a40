package gitrepo

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"aiblame/internal/config"
	aberr "aiblame/internal/errors"
	"aiblame/internal/testutil"
)

func discover(t *testing.T, dir string) *Repo {
	t.Helper()
	repo, err := Discover(context.Background(), dir, config.DefaultConfig(), testutil.QuietLogger())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return repo
}

func TestDiscover(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("sub/file.txt", "hello\n")
	fixture.Commit("initial")

	t.Run("from root", func(t *testing.T) {
		repo := discover(t, fixture.Root)
		if got, want := filepath.Clean(repo.Root()), filepath.Clean(fixture.Root); got != want {
			// Roots may differ by symlink resolution (e.g. /tmp vs /private/tmp).
			if !strings.HasSuffix(got, filepath.Base(want)) {
				t.Errorf("Root() = %q, want %q", got, want)
			}
		}
		if !strings.HasSuffix(repo.GitDir(), ".git") {
			t.Errorf("GitDir() = %q, want .git suffix", repo.GitDir())
		}
	})

	t.Run("from subdirectory", func(t *testing.T) {
		repo := discover(t, filepath.Join(fixture.Root, "sub"))
		if filepath.Base(repo.Root()) != filepath.Base(fixture.Root) {
			t.Errorf("Root() = %q, want repo root", repo.Root())
		}
	})

	t.Run("outside a repository", func(t *testing.T) {
		_, err := Discover(context.Background(), t.TempDir(), config.DefaultConfig(), testutil.QuietLogger())
		if err == nil {
			t.Fatal("expected error outside a repository")
		}
		if aberr.CodeOf(err) != aberr.NotARepository {
			t.Errorf("CodeOf(err) = %v, want NotARepository", aberr.CodeOf(err))
		}
	})
}

func TestResolveCommit(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\n")
	sha := fixture.Commit("initial")
	repo := discover(t, fixture.Root)
	ctx := context.Background()

	got, err := repo.ResolveCommit(ctx, "HEAD")
	if err != nil {
		t.Fatalf("ResolveCommit(HEAD) error = %v", err)
	}
	if got != sha {
		t.Errorf("ResolveCommit(HEAD) = %s, want %s", got, sha)
	}

	if _, err := repo.ResolveCommit(ctx, "no-such-branch"); err == nil {
		t.Fatal("expected error for unknown revision")
	} else if aberr.CodeOf(err) != aberr.UnresolvableRevision {
		t.Errorf("CodeOf(err) = %v, want UnresolvableRevision", aberr.CodeOf(err))
	}
}

func TestParents(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\n")
	first := fixture.Commit("first")
	fixture.WriteFile("a.txt", "one\ntwo\n")
	second := fixture.Commit("second")
	repo := discover(t, fixture.Root)
	ctx := context.Background()

	parents, err := repo.Parents(ctx, first)
	if err != nil {
		t.Fatalf("Parents(root) error = %v", err)
	}
	if len(parents) != 0 {
		t.Errorf("Parents(root commit) = %v, want empty", parents)
	}

	parents, err = repo.Parents(ctx, second)
	if err != nil {
		t.Fatalf("Parents(second) error = %v", err)
	}
	if len(parents) != 1 || parents[0] != first {
		t.Errorf("Parents(second) = %v, want [%s]", parents, first)
	}
}

func TestDiffCommits(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\ntwo\nthree\n")
	first := fixture.Commit("first")
	fixture.WriteFile("a.txt", "one\ntwo\ninserted\nthree\n")
	fixture.WriteFile("b.txt", "new file\n")
	second := fixture.Commit("second")
	repo := discover(t, fixture.Root)

	deltas, err := repo.DiffCommits(context.Background(), first, second)
	if err != nil {
		t.Fatalf("DiffCommits() error = %v", err)
	}

	byPath := make(map[string]FileDelta)
	for _, d := range deltas {
		byPath[d.Path()] = d
	}

	a, ok := byPath["a.txt"]
	if !ok {
		t.Fatalf("no delta for a.txt in %+v", deltas)
	}
	if got := a.AddedLines(); len(got) != 1 || got[0] != 3 {
		t.Errorf("a.txt AddedLines() = %v, want [3]", got)
	}

	b, ok := byPath["b.txt"]
	if !ok {
		t.Fatalf("no delta for b.txt in %+v", deltas)
	}
	if !b.IsNew {
		t.Errorf("b.txt delta = %+v, want new file", b)
	}
}

func TestDiffCommitsAgainstEmptyTree(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\ntwo\n")
	sha := fixture.Commit("first")
	repo := discover(t, fixture.Root)

	deltas, err := repo.DiffCommits(context.Background(), "", sha)
	if err != nil {
		t.Fatalf("DiffCommits(empty tree) error = %v", err)
	}
	if len(deltas) != 1 || !deltas[0].IsNew {
		t.Fatalf("deltas = %+v, want single new file", deltas)
	}
	if got := deltas[0].AddedLines(); len(got) != 2 {
		t.Errorf("AddedLines() = %v, want two lines", got)
	}
}

func TestNotes(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\n")
	sha := fixture.Commit("first")
	repo := discover(t, fixture.Root)
	ctx := context.Background()
	ref := "refs/notes/attribution-test"

	if _, found, err := repo.NoteShow(ctx, ref, sha); err != nil {
		t.Fatalf("NoteShow(missing) error = %v", err)
	} else if found {
		t.Fatal("NoteShow(missing) found = true, want false")
	}

	blob := []byte("{\"hello\": \"world\"}\n")
	if err := repo.NoteWrite(ctx, ref, sha, blob); err != nil {
		t.Fatalf("NoteWrite() error = %v", err)
	}

	data, found, err := repo.NoteShow(ctx, ref, sha)
	if err != nil {
		t.Fatalf("NoteShow() error = %v", err)
	}
	if !found {
		t.Fatal("NoteShow() found = false after write")
	}
	if strings.TrimSpace(string(data)) != strings.TrimSpace(string(blob)) {
		t.Errorf("note = %q, want %q", data, blob)
	}

	commits, err := repo.NotesList(ctx, ref)
	if err != nil {
		t.Fatalf("NotesList() error = %v", err)
	}
	if len(commits) != 1 || commits[0] != sha {
		t.Errorf("NotesList() = %v, want [%s]", commits, sha)
	}

	if err := repo.NoteRemove(ctx, ref, sha); err != nil {
		t.Fatalf("NoteRemove() error = %v", err)
	}
	if _, found, _ := repo.NoteShow(ctx, ref, sha); found {
		t.Error("note still present after remove")
	}

	// Removing again is fine.
	if err := repo.NoteRemove(ctx, ref, sha); err != nil {
		t.Errorf("NoteRemove(missing) error = %v", err)
	}
}

func TestConfigAddAndGetAll(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\n")
	fixture.Commit("first")
	repo := discover(t, fixture.Root)
	ctx := context.Background()

	values, err := repo.ConfigGetAll(ctx, "remote.origin.push")
	if err != nil {
		t.Fatalf("ConfigGetAll(missing) error = %v", err)
	}
	if values != nil {
		t.Errorf("ConfigGetAll(missing) = %v, want nil", values)
	}

	if err := repo.ConfigAdd(ctx, "remote.origin.push", "refs/notes/test"); err != nil {
		t.Fatalf("ConfigAdd() error = %v", err)
	}
	if err := repo.ConfigAdd(ctx, "remote.origin.push", "refs/heads/main"); err != nil {
		t.Fatalf("ConfigAdd() error = %v", err)
	}

	values, err = repo.ConfigGetAll(ctx, "remote.origin.push")
	if err != nil {
		t.Fatalf("ConfigGetAll() error = %v", err)
	}
	if len(values) != 2 || values[0] != "refs/notes/test" {
		t.Errorf("ConfigGetAll() = %v", values)
	}
}

func TestBlameFileAgainstRepo(t *testing.T) {
	fixture := testutil.NewRepo(t)
	fixture.WriteFile("a.txt", "one\ntwo\n")
	first := fixture.Commit("first")
	fixture.WriteFile("a.txt", "one\ntwo\nthree\n")
	second := fixture.Commit("second")
	repo := discover(t, fixture.Root)

	lines, err := repo.BlameFile(context.Background(), "HEAD", "a.txt")
	if err != nil {
		t.Fatalf("BlameFile() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d blame lines, want 3", len(lines))
	}
	if lines[0].SHA != first || lines[1].SHA != first {
		t.Errorf("lines 1-2 blamed to %s/%s, want %s", lines[0].SHA, lines[1].SHA, first)
	}
	if lines[2].SHA != second {
		t.Errorf("line 3 blamed to %s, want %s", lines[2].SHA, second)
	}
	if lines[2].Content != "three" {
		t.Errorf("line 3 content = %q, want three", lines[2].Content)
	}
}

func TestShortSHA(t *testing.T) {
	if got := ShortSHA("0123456789abcdef"); got != "01234567" {
		t.Errorf("ShortSHA() = %q, want 01234567", got)
	}
	if got := ShortSHA("abc"); got != "abc" {
		t.Errorf("ShortSHA(short) = %q, want abc", got)
	}
}
