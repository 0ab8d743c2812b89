// Package gcperr defines the error taxonomy shared by every exposed
// operation. Errors carry a stable Kind that becomes the "kind" field of
// the error envelope; internal error types never cross the server boundary.
package gcperr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Kind identifies a failure class in the fixed taxonomy.
type Kind string

const (
	// KindMalformedCredential indicates inline credential material that
	// could not be parsed.
	KindMalformedCredential Kind = "MalformedCredentialError"

	// KindCredentialFile indicates a credential key file that was
	// unreadable or invalid.
	KindCredentialFile Kind = "CredentialFileError"

	// KindNoCredential indicates no ambient credential was discoverable.
	KindNoCredential Kind = "NoCredentialError"

	// KindClientConstruction indicates a backend connector could not be
	// built. Not cached; a later access retries construction.
	KindClientConstruction Kind = "ClientConstructionError"

	// KindMissingConfiguration indicates a required default (project) was
	// never supplied.
	KindMissingConfiguration Kind = "MissingConfigurationError"

	// KindMissingParameter indicates a required parameter had neither a
	// caller value nor a default source.
	KindMissingParameter Kind = "MissingParameterError"

	// KindTimeout indicates a backend call exceeded its bound.
	KindTimeout Kind = "TimeoutError"

	// KindBackendOperation is the catch-all for adapter-reported failures.
	KindBackendOperation Kind = "BackendOperationError"
)

// Error is the classified error carried through the core. The Message is
// safe to surface externally; Cause is internal detail and is never
// serialized.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs a classified error with a sanitized message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: Sanitize(message)}
}

// Newf constructs a classified error from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap constructs a classified error retaining the cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: Sanitize(message), Cause: cause}
}

// KindOf returns the Kind of err, or KindBackendOperation when err carries
// no classification.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindBackendOperation
}

// Classify converts any error into a classified *Error. Already-classified
// errors pass through unchanged; context deadline expiry becomes a
// TimeoutError; everything else becomes a BackendOperationError with a
// sanitized message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, "backend call exceeded its deadline", err)
	}
	return Wrap(KindBackendOperation, err.Error(), err)
}

// sanitizePatterns match content that must never leave the process in an
// externally visible message.
var sanitizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(token|secret|password|private_key)[^\s"]*`),
	regexp.MustCompile(`\b\d{4}-\d{4}-\d{4}-\d{4}\b`),
}

// Sanitize redacts credential-looking fragments from a message.
func Sanitize(text string) string {
	for _, p := range sanitizePatterns {
		text = p.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}
