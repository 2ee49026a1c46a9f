package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGeneration represents upstream LLM generation errors
	ErrorTypeGeneration ErrorType = "generation"
	// ErrorTypeExtraction represents knowledge extraction errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeNotFound represents missing node/tree lookups
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// base gives the typed wrappers (which embed *BaseError) a common handle
// for classification; promotion makes every wrapper satisfy classified.
func (e *BaseError) base() *BaseError {
	return e
}

type classified interface {
	base() *BaseError
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Generation Errors

// ErrGenerationFailed is returned when the upstream generation call fails.
// Fatal to the current request's answer content.
type ErrGenerationFailed struct {
	*BaseError
	Model string
}

func NewGenerationFailed(model string, err error) *ErrGenerationFailed {
	return &ErrGenerationFailed{
		BaseError: NewBaseError(ErrorTypeGeneration, fmt.Sprintf("generation failed for model %s", model), err),
		Model:     model,
	}
}

// ErrGenerationEmpty is returned when the LLM produces no choices
var ErrGenerationEmpty = NewBaseError(ErrorTypeGeneration, "no choices in LLM response", nil)

// Extraction Errors

// ErrExtractionInvalid is returned when an LLM-assisted extraction produces
// output that cannot be parsed into triples. Recovered locally by falling
// back to rule-based extraction, never surfaced to the caller.
type ErrExtractionInvalid struct {
	*BaseError
	Raw string
}

func NewExtractionInvalid(raw string, err error) *ErrExtractionInvalid {
	return &ErrExtractionInvalid{
		BaseError: NewBaseError(ErrorTypeExtraction, "invalid structured extraction output", err),
		Raw:       raw,
	}
}

// Graph Errors

// ErrGraphUnavailable is returned when Neo4j is unreachable
type ErrGraphUnavailable struct {
	*BaseError
	URI string
}

func NewGraphUnavailable(uri string, err error) *ErrGraphUnavailable {
	return &ErrGraphUnavailable{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("graph store unreachable: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, "query failed", err),
		Query:     query,
	}
}

// Not-found Errors

// ErrNodeNotFound is returned when a dialogue node lookup matches nothing.
// Surfaced as an empty/absent result, not a failure.
type ErrNodeNotFound struct {
	*BaseError
	NodeID string
}

func NewNodeNotFound(nodeID string) *ErrNodeNotFound {
	return &ErrNodeNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("dialogue node not found: %s", nodeID), nil),
		NodeID:    nodeID,
	}
}

// ErrEdgeEndpointMissing is returned when linking nodes and one endpoint
// does not exist
type ErrEdgeEndpointMissing struct {
	*BaseError
	ParentID string
	ChildID  string
}

func NewEdgeEndpointMissing(parentID, childID string) *ErrEdgeEndpointMissing {
	return &ErrEdgeEndpointMissing{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("edge endpoint missing: %s -> %s", parentID, childID), nil),
		ParentID:  parentID,
		ChildID:   childID,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type, unwrapping through
// both the typed wrappers and foreign wrapping
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if c, ok := err.(classified); ok {
			return c.base().Type == errType
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether an error is a not-found lookup, as opposed to
// a real store failure
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*ErrNodeNotFound); ok {
		return true
	}
	if _, ok := err.(*ErrEdgeEndpointMissing); ok {
		return true
	}
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Graph connectivity errors are retryable, idempotent upserts make
	// replays safe
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	if _, ok := err.(*ErrGraphUnavailable); ok {
		return true
	}
	return false
}
