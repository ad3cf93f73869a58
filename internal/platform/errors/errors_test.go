package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindProvider, "synthesize", "provider call failed",
				errors.New("connection refused")),
			contains: []string{"[provider:synthesize]", "provider call failed", "connection refused"},
		},
		{
			name:     "error without cause",
			err:      New(KindValidation, "match", "no suitable voice"),
			contains: []string{"[validation:match]", "no suitable voice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindEngine, "normalize", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_RekindsTypedCause(t *testing.T) {
	cause := Wrap(KindProvider, "synthesize", "provider call failed", errors.New("down"))
	wrapped := Wrap(KindExhaustion, "generate", "all providers failed", cause)

	if wrapped.Kind != KindExhaustion {
		t.Errorf("outer kind = %s, expected %s", wrapped.Kind, KindExhaustion)
	}
	if !strings.Contains(wrapped.Error(), "all providers failed") {
		t.Errorf("outer message lost: %q", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Error("typed cause should stay in the chain")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindValidation, "test", "message"),
			kind:     KindValidation,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      Wrap(KindExhaustion, "test", "message", errors.New("cause")),
			kind:     KindExhaustion,
			expected: true,
		},
		{
			name:     "rewrapped typed cause matches outer kind",
			err:      Wrap(KindExhaustion, "generate", "all providers failed", New(KindProvider, "synthesize", "bad gateway")),
			kind:     KindExhaustion,
			expected: true,
		},
		{
			name:     "rewrapped typed cause still matches inner kind",
			err:      Wrap(KindExhaustion, "generate", "all providers failed", New(KindProvider, "synthesize", "bad gateway")),
			kind:     KindProvider,
			expected: true,
		},
		{
			name:     "timeout deep in the chain satisfies provider kind",
			err:      Wrap(KindExhaustion, "generate", "all providers failed", New(KindTimeout, "synthesize", "deadline exceeded")),
			kind:     KindProvider,
			expected: true,
		},
		{
			name:     "timeout satisfies provider kind",
			err:      New(KindTimeout, "synthesize", "deadline exceeded"),
			kind:     KindProvider,
			expected: true,
		},
		{
			name:     "provider does not satisfy timeout kind",
			err:      New(KindProvider, "synthesize", "bad gateway"),
			kind:     KindTimeout,
			expected: false,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindValidation, "test", "message"),
			kind:     KindEngine,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindProvider,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
