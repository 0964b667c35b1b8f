package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "routemap index"}}

	err := New(IndexUnavailable, "index not ready", cause, fixes)

	if err.Code != IndexUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, IndexUnavailable)
	}
	if err.Message != "index not ready" {
		t.Errorf("Message = %q, want %q", err.Message, "index not ready")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestNew_DefaultFixes(t *testing.T) {
	err := New(IndexUnavailable, "index not ready", nil, nil)
	if len(err.SuggestedFixes) != len(ErrorActions[IndexUnavailable]) {
		t.Errorf("len(SuggestedFixes) = %d, want %d", len(err.SuggestedFixes), len(ErrorActions[IndexUnavailable]))
	}

	err = New(MalformedDeclaration, "bad", nil, nil)
	if err.SuggestedFixes != nil {
		t.Errorf("SuggestedFixes = %v, want nil", err.SuggestedFixes)
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      IndexUnavailable,
			message:   "index is locked",
			cause:     errors.New("indexing in progress"),
			wantParts: []string{"INDEX_UNAVAILABLE", "index is locked", "indexing in progress"},
		},
		{
			name:      "without cause",
			code:      MalformedDeclaration,
			message:   "unknown request method FOO",
			cause:     nil,
			wantParts: []string{"MALFORMED_DECLARATION", "unknown request method FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause, nil).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause, nil)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestHasCode(t *testing.T) {
	base := Newf(IndexUnavailable, "index %s missing", "declarations")
	wrapped := fmt.Errorf("query candidates: %w", base)

	if !HasCode(wrapped, IndexUnavailable) {
		t.Error("HasCode should see through fmt wrapping")
	}
	if HasCode(wrapped, ConfigUnresolved) {
		t.Error("HasCode matched the wrong code")
	}
	if HasCode(nil, IndexUnavailable) {
		t.Error("HasCode(nil) should be false")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf plain error should be empty")
	}
}

func TestWithDetails(t *testing.T) {
	err := Newf(ConfigUnresolved, "port unresolved").WithDetails(map[string]string{"module": "api"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["module"] != "api" {
		t.Errorf("Details = %v", err.Details)
	}
}
