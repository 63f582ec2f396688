// Package errors provides the error types shared by the segmentation engine
// and the drivers around it.
package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrRecognition indicates a marker line that yields no usable verse numbers
	ErrRecognition = errors.New("marker recognition failed")
	// ErrOrdering indicates a verse citation sequence that regresses or skips
	ErrOrdering = errors.New("citation ordering violated")
	// ErrNoMarkers indicates a document without a single recognized marker
	ErrNoMarkers = errors.New("no markers found")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "page", "segment", "document")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "XML", "page ranges")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// RecognitionError reports a line that matched the marker pattern but whose
// citation normalized to an empty verse set.
type RecognitionError struct {
	LineNumber int    // 1-based position of the line in the document
	Line       string // The offending line, trimmed
	Citation   string // The raw numeral-range capture
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("line %d: citation %q yields no verse numbers: %s", e.LineNumber, e.Citation, e.Line)
}

func (e *RecognitionError) Unwrap() error {
	return ErrRecognition
}

// OrderingError reports two successive citations that are not monotonically
// compatible. Ordinals are 1-based positions in the marker sequence.
type OrderingError struct {
	PreviousOrdinal int
	Previous        []int
	CurrentOrdinal  int
	Current         []int
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("list not ordered properly: current #%d %s, previous #%d %s",
		e.CurrentOrdinal, formatInts(e.Current), e.PreviousOrdinal, formatInts(e.Previous))
}

func (e *OrderingError) Unwrap() error {
	return ErrOrdering
}

// NoMarkersError reports a document in which no marker was recognized.
// Empty is set when the document had no non-blank line at all.
type NoMarkersError struct {
	Document string
	Empty    bool
}

func (e *NoMarkersError) Error() string {
	if e.Empty {
		return fmt.Sprintf("document %s is empty", e.Document)
	}
	return fmt.Sprintf("no markers found in document %s", e.Document)
}

func (e *NoMarkersError) Unwrap() error {
	return ErrNoMarkers
}

func formatInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
