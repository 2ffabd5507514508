package shield

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestConfigError_Is(t *testing.T) {
	err := error(&ConfigError{Reason: "unknown action", Class: "pii"})

	if !errors.Is(err, ErrBadPolicy) {
		t.Error("ConfigError should unwrap to ErrBadPolicy")
	}
	if errors.Is(err, ErrUnknownClass) {
		t.Error("ConfigError should not match ErrUnknownClass")
	}
}

func TestConfigError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "class context",
			err:  &ConfigError{Reason: "unknown action", Class: "pii", Pattern: -1},
			want: `bad policy: unknown action (class "pii")`,
		},
		{
			name: "pattern context",
			err:  &ConfigError{Reason: "invalid glob", Pattern: 3},
			want: "bad policy: invalid glob (pattern 3)",
		},
		{
			name: "document level",
			err:  &ConfigError{Reason: "not yaml", Pattern: -1},
			want: "bad policy: not yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownClassError_Is(t *testing.T) {
	err := error(&UnknownClassError{Class: "retired"})

	if !errors.Is(err, ErrUnknownClass) {
		t.Error("UnknownClassError should unwrap to ErrUnknownClass")
	}

	var ucErr *UnknownClassError
	if !errors.As(err, &ucErr) || ucErr.Class != "retired" {
		t.Errorf("errors.As failed: %v", err)
	}
}

func TestAuthorizationError_Is(t *testing.T) {
	err := error(&AuthorizationError{Caller: "svc", Field: "a.b", Class: "pii"})

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("AuthorizationError should unwrap to ErrUnauthorized")
	}
	want := `caller "svc" not authorized for field a.b (class "pii")`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKeyVersionError_Is(t *testing.T) {
	err := error(&KeyVersionError{Ref: "main", Version: 2})

	if !errors.Is(err, ErrUnknownKeyVersion) {
		t.Error("KeyVersionError should unwrap to ErrUnknownKeyVersion")
	}
	if errors.Is(err, ErrUnknownKey) {
		t.Error("KeyVersionError should not match ErrUnknownKey")
	}
}

func TestEncodingError_Is(t *testing.T) {
	cause := errors.New("unexpected end of input")
	err := newEncodingError(ErrDecode, cause)

	if !errors.Is(err, ErrDecode) {
		t.Error("EncodingError should unwrap to its sentinel")
	}
	if errors.Is(err, ErrEncode) {
		t.Error("decode error should not match ErrEncode")
	}

	var encErr *EncodingError
	if !errors.As(err, &encErr) || encErr.Cause != cause {
		t.Errorf("errors.As failed: %v", err)
	}
}

func TestEncodingError_Message(t *testing.T) {
	withCause := newEncodingError(ErrEncode, errors.New("boom"))
	if got := withCause.Error(); got != "encode failed: boom" {
		t.Errorf("Error() = %q", got)
	}

	bare := &EncodingError{Err: ErrDecode}
	if got := bare.Error(); got != "decode failed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapDeadline(t *testing.T) {
	deadline := fmt.Errorf("fetch key: %w", context.DeadlineExceeded)
	if !errors.Is(wrapDeadline(deadline), ErrTimeout) {
		t.Error("deadline failures should map to ErrTimeout")
	}

	cancelled := fmt.Errorf("fetch key: %w", context.Canceled)
	if errors.Is(wrapDeadline(cancelled), ErrTimeout) {
		t.Error("cancellation should pass through unchanged")
	}

	plain := errors.New("connection refused")
	if wrapDeadline(plain) != plain {
		t.Error("ordinary errors should pass through unchanged")
	}
}
