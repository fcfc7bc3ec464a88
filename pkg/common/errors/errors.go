package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the reactflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrCancelled indicates that a subscription was cancelled before it terminated
	ErrCancelled = errors.New("subscription cancelled")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrPersistence is the sentinel behind every PersistenceFailure
	ErrPersistence = errors.New("persistence failure")

	// ErrProcessing is the sentinel behind every ProcessingFailure
	ErrProcessing = errors.New("processing failure")

	// ErrUpstream is the sentinel behind every UpstreamFailure
	ErrUpstream = errors.New("upstream failure")
)

// Kind classifies a stream failure for error policies and the HTTP boundary.
type Kind int

const (
	// KindUnknown is an error that carries no stream classification.
	KindUnknown Kind = iota
	// KindPersistence means the document store was unreachable or rejected a write.
	KindPersistence
	// KindProcessing means a per-element function failed.
	KindProcessing
	// KindUpstream means a wrapped source failed.
	KindUpstream
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindPersistence:
		return "persistence"
	case KindProcessing:
		return "processing"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPersistence:
		return ErrPersistence
	case KindProcessing:
		return ErrProcessing
	case KindUpstream:
		return ErrUpstream
	default:
		return nil
	}
}

// StreamError is a classified failure raised inside a stream pipeline.
type StreamError struct {
	Kind Kind
	// Op names the operator or store operation that failed.
	Op string
	// Element is the offending element for processing failures, nil otherwise.
	Element any
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Element != nil {
		return fmt.Sprintf("%s: %s failure on element %v: %v", e.Op, e.Kind, e.Element, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *StreamError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Persistence wraps err as a PersistenceFailure raised by op.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StreamError{Kind: KindPersistence, Op: op, Err: err}
}

// Processing wraps err as a ProcessingFailure raised by op while handling element.
func Processing(op string, element any, err error) error {
	if err == nil {
		return nil
	}
	return &StreamError{Kind: KindProcessing, Op: op, Element: element, Err: err}
}

// Upstream wraps err as an UpstreamFailure. Errors that already carry a
// classification are returned unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &StreamError{Kind: KindUpstream, Op: op, Err: err}
}

// KindOf returns the classification of the outermost StreamError in err's chain.
func KindOf(err error) Kind {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsPersistence returns true if err is a PersistenceFailure
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsProcessing returns true if err is a ProcessingFailure
func IsProcessing(err error) bool {
	return errors.Is(err, ErrProcessing)
}

// IsUpstream returns true if err is an UpstreamFailure
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// ValidationError describes a rejected argument, configuration value or document field.
type ValidationError struct {
	Module string
	Field  string
	Value  any
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError.
func NewValidationError(module, field string, value any, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same instance.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// IsValidationError returns true if err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
