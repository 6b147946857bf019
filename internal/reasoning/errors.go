package reasoning

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a reasoning-service failure.
type Kind string

const (
	// KindQuotaExceeded marks rate-limit failures that persisted
	// through every retry. The caller may retry the whole operation
	// later.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindUnavailable marks transient availability failures that
	// persisted through every retry.
	KindUnavailable Kind = "service_unavailable"
	// KindMalformedOutput marks calls that returned structurally
	// invalid content. Never retried.
	KindMalformedOutput Kind = "malformed_output"
)

// Error is the typed failure surfaced by reasoning calls after the
// retry envelope gives up.
type Error struct {
	Kind     Kind
	Stage    string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: %s after %d attempts: %v", e.Stage, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Malformed wraps a parse or shape failure as a non-retryable error.
func Malformed(stage string, err error) *Error {
	return &Error{Kind: KindMalformedOutput, Stage: stage, Attempts: 1, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// IsQuota reports whether err is a rate-limit failure.
func IsQuota(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindQuotaExceeded
}

// IsUnavailable reports whether err is a transient availability failure.
func IsUnavailable(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnavailable
}

// IsMalformed reports whether err marks structurally invalid output.
func IsMalformed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindMalformedOutput
}

// classify inspects a failure for the rate-limit and availability
// signatures the upstream service emits. Anything else, including
// malformed output, is non-retryable.
func classify(err error) (Kind, bool) {
	if k, ok := kindOf(err); ok && k == KindMalformedOutput {
		return "", false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "too many requests"):
		return KindQuotaExceeded, true
	case strings.Contains(msg, "503"),
		strings.Contains(msg, "service unavailable"):
		return KindUnavailable, true
	}
	return "", false
}
