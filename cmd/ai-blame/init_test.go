package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInstallHook_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post-commit")

	action, err := installHook(path, postCommitHookTemplate, postCommitHookSnippet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != hookInstalled {
		t.Errorf("action = %v, want hookInstalled", action)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading hook: %v", err)
	}
	if !strings.HasPrefix(string(content), "#!/bin/bash") {
		t.Error("new hook missing shebang")
	}
	if !strings.Contains(string(content), "ai-blame post-commit") {
		t.Error("new hook missing command")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat hook: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("hook not executable, mode %v", info.Mode())
	}
}

func TestInstallHook_AlreadyInstalled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post-commit")
	existing := "#!/bin/bash\nai-blame post-commit\n"
	if err := os.WriteFile(path, []byte(existing), 0o755); err != nil {
		t.Fatal(err)
	}

	action, err := installHook(path, postCommitHookTemplate, postCommitHookSnippet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != hookAlreadyInstalled {
		t.Errorf("action = %v, want hookAlreadyInstalled", action)
	}

	content, _ := os.ReadFile(path)
	if string(content) != existing {
		t.Error("existing ai-blame hook should not be modified")
	}
}

func TestInstallHook_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post-commit")
	existing := "#!/bin/bash\necho existing hook\n\n\n"
	if err := os.WriteFile(path, []byte(existing), 0o755); err != nil {
		t.Fatal(err)
	}

	action, err := installHook(path, postCommitHookTemplate, postCommitHookSnippet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != hookAppended {
		t.Errorf("action = %v, want hookAppended", action)
	}

	content, _ := os.ReadFile(path)
	got := string(content)
	if !strings.HasPrefix(got, "#!/bin/bash\necho existing hook\n\n# ai-blame post-commit hook\n") {
		t.Errorf("appended hook has wrong layout:\n%s", got)
	}
	if !strings.Contains(got, "ai-blame post-commit 2>/dev/null || true") {
		t.Error("appended hook missing command")
	}
	if strings.Count(got, "echo existing hook") != 1 {
		t.Error("existing hook body should be preserved exactly once")
	}
}

func TestInstallHook_PostRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post-rewrite")

	action, err := installHook(path, postRewriteHookTemplate, postRewriteHookSnippet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != hookInstalled {
		t.Errorf("action = %v, want hookInstalled", action)
	}

	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "ai-blame propagate --stdin") {
		t.Error("post-rewrite hook missing propagate command")
	}
}

func TestRefspecConfigured(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"empty", nil, false},
		{"unrelated refspecs", []string{"refs/heads/*:refs/heads/*"}, false},
		{"notes refspec", []string{"refs/heads/*", "refs/notes/ai-blame"}, true},
		{"fetch form", []string{"+refs/notes/ai-blame:refs/notes/ai-blame"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := refspecConfigured(tt.values); got != tt.want {
				t.Errorf("refspecConfigured(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestParseLineRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		start   int
		end     int
		wantErr bool
	}{
		{"empty means whole file", "", 0, 0, false},
		{"valid range", "10:20", 10, 20, false},
		{"single line", "5:6", 5, 6, false},
		{"missing colon", "10", 0, 0, true},
		{"non-numeric start", "a:5", 0, 0, true},
		{"non-numeric end", "5:b", 0, 0, true},
		{"zero start", "0:5", 0, 0, true},
		{"empty range", "5:5", 0, 0, true},
		{"inverted range", "9:4", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseLineRange(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLineRange(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLineRange(%q) unexpected error: %v", tt.spec, err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("parseLineRange(%q) = %d, %d, want %d, %d", tt.spec, start, end, tt.start, tt.end)
			}
		})
	}
}
