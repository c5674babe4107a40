package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(StagingCorrupt, "pending file unreadable", cause)

	if err.Code != StagingCorrupt {
		t.Errorf("Code = %v, want %v", err.Code, StagingCorrupt)
	}
	if err.Message != "pending file unreadable" {
		t.Errorf("Message = %q, want %q", err.Message, "pending file unreadable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAttrError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      GitOperation,
			message:   "git diff failed",
			cause:     errors.New("exit status 128"),
			wantParts: []string{"GIT_OPERATION", "git diff failed", "exit status 128"},
		},
		{
			name:      "without cause",
			code:      NoAttribution,
			message:   "commit abc123 has no attribution",
			cause:     nil,
			wantParts: []string{"NO_ATTRIBUTION", "commit abc123 has no attribution"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.cause)
			got := err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, missing %q", got, part)
				}
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(UnresolvableRevision, nil, "cannot resolve %q", "HEAD~99")
	if !strings.Contains(err.Error(), `cannot resolve "HEAD~99"`) {
		t.Errorf("Error() = %q, missing formatted message", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		err := New(NoteConflict, "ref locked", nil)
		if got := CodeOf(err); got != NoteConflict {
			t.Errorf("CodeOf = %v, want %v", got, NoteConflict)
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		inner := New(StagingLocked, "lock timeout", nil)
		err := fmt.Errorf("draining: %w", inner)
		if got := CodeOf(err); got != StagingLocked {
			t.Errorf("CodeOf = %v, want %v", got, StagingLocked)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if got := CodeOf(errors.New("boom")); got != InternalError {
			t.Errorf("CodeOf = %v, want %v", got, InternalError)
		}
	})
}

func TestSentinels(t *testing.T) {
	err := New(NoAttribution, "source has no record", ErrNoAttribution)
	if !Is(err, ErrNoAttribution) {
		t.Error("expected chain to contain ErrNoAttribution")
	}

	wrapped := Wrap(ErrStagingCorrupt, "line 3")
	if !Is(wrapped, ErrStagingCorrupt) {
		t.Error("Wrap should preserve sentinel identity")
	}

	wrappedf := Wrapf(ErrNoteConflict, "after %d attempts", 3)
	if !Is(wrappedf, ErrNoteConflict) {
		t.Error("Wrapf should preserve sentinel identity")
	}
	if !strings.Contains(wrappedf.Error(), "after 3 attempts") {
		t.Errorf("Wrapf message lost: %q", wrappedf.Error())
	}
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(PromptMissing, "digest 1234 not stored", nil))
	var ae *AttrError
	if !As(err, &ae) {
		t.Fatal("As failed to extract AttrError")
	}
	if ae.Code != PromptMissing {
		t.Errorf("Code = %v, want %v", ae.Code, PromptMissing)
	}
}
