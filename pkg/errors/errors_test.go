package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindInvalidInput, "invalid_input"},
		{KindNavigationTimeout, "navigation_timeout"},
		{KindRenderFailure, "render_failure"},
		{KindUnreadablePDF, "unreadable_pdf"},
		{KindEvaluatorPartial, "evaluator_partial"},
		{KindStoreWrite, "store_write_failure"},
		{KindNotFound, "not_found"},
		{KindTimeout, "timeout"},
		{KindInternal, "internal"},
		{KindUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestE(t *testing.T) {
	underlying := errors.New("boom")
	err := E(KindRenderFailure, "render.Controller.Render", "navigate", underlying)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("E() did not return *Error")
	}
	if e.Kind != KindRenderFailure {
		t.Errorf("Kind = %v, want KindRenderFailure", e.Kind)
	}
	if e.Op != "render.Controller.Render" {
		t.Errorf("Op = %q", e.Op)
	}
	if e.Message != "navigate" {
		t.Errorf("Message = %q", e.Message)
	}
	if !errors.Is(err, err) {
		t.Errorf("errors.Is(err, err) = false")
	}
	if errors.Unwrap(err) != underlying {
		t.Errorf("Unwrap() did not return the underlying error")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "op message and cause",
			err:      &Error{Op: "store.Save", Message: "write summary", Err: errors.New("disk full")},
			expected: "store.Save: write summary: disk full",
		},
		{
			name:     "op and message",
			err:      &Error{Op: "store.Save", Message: "write summary"},
			expected: "store.Save: write summary",
		},
		{
			name:     "message and cause",
			err:      &Error{Message: "write summary", Err: errors.New("disk full")},
			expected: "write summary: disk full",
		},
		{
			name:     "cause only",
			err:      &Error{Err: errors.New("disk full")},
			expected: "disk full",
		},
		{
			name:     "message only",
			err:      &Error{Message: "write summary"},
			expected: "write summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := E(KindNavigationTimeout, "render.Controller.Render", "deadline exceeded")
	if !errors.Is(err, ErrNavigationTimeout) {
		t.Errorf("errors.Is did not match ErrNavigationTimeout")
	}
	if errors.Is(err, ErrUnreadablePDF) {
		t.Errorf("errors.Is matched the wrong sentinel")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"render failure", E(KindRenderFailure, "op", "crash"), true},
		{"wrapped render failure", fmt.Errorf("run: %w", ErrRenderFailure), true},
		{"navigation timeout", ErrNavigationTimeout, false},
		{"unreadable pdf", ErrUnreadablePDF, false},
		{"store write", E(KindStoreWrite, "op", "msg"), false},
		{"plain error", errors.New("x"), false},
		{"nil-kind wrap", Wrap(errors.New("x"), "op"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetKind_Wrapped(t *testing.T) {
	inner := E(KindUnreadablePDF, "pdfaudit.Audit", "bad xref")
	outer := fmt.Errorf("audit run: %w", inner)
	if got := GetKind(outer); got != KindUnreadablePDF {
		t.Errorf("GetKind() = %v, want KindUnreadablePDF", got)
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "op") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}
