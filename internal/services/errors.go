package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying (permissions, disk full,
	// flaky network mounts).
	ErrTransient = errors.New("transient failure")
	// ErrIntegrity marks a digest mismatch. Never retried as success.
	ErrIntegrity = errors.New("integrity failure")
	// ErrConfiguration marks unusable input (missing roots, malformed
	// manifest). Fatal before any filesystem mutation.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing source or target path.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks a failed external probe invocation.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether the error must abort the run instead of being
// recorded as a per-file failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// Retryable reports whether the error is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
