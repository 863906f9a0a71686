package engine

import (
	"errors"
	"fmt"
)

// DecodeError reports a result row or stored document that violates the
// document protocol. Decoding stops at the first DecodeError: records
// already returned stand, but the iterator yields nothing further.
//
// Decode errors include:
//   - Missing field: a projected alias or a required key is absent
//   - Malformed adjacency: an adjacency list is neither an array of edge
//     documents nor a spilled marker
//   - Unknown edge: a cross-applied edge is not in its vertex's adjacency list
type DecodeError struct {
	// Code identifies the error category.
	Code DecodeErrorCode

	// Message is a human-readable description.
	Message string

	// VertexID identifies the vertex being decoded, when known.
	VertexID string

	// Field names the offending key or alias.
	Field string
}

// DecodeErrorCode categorizes decode errors.
type DecodeErrorCode string

const (
	// ErrCodeMissingField indicates a required key or alias is absent.
	ErrCodeMissingField DecodeErrorCode = "MISSING_FIELD"

	// ErrCodeMalformedAdjacency indicates an adjacency list of the wrong shape.
	ErrCodeMalformedAdjacency DecodeErrorCode = "MALFORMED_ADJACENCY"

	// ErrCodeMalformedDocument indicates a value of the wrong type.
	ErrCodeMalformedDocument DecodeErrorCode = "MALFORMED_DOCUMENT"

	// ErrCodeUnknownEdge indicates a cross-applied edge missing from the
	// owning vertex's adjacency list.
	ErrCodeUnknownEdge DecodeErrorCode = "UNKNOWN_EDGE"
)

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch {
	case e.VertexID != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (vertex=%s, field=%s)", e.Code, e.Message, e.VertexID, e.Field)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	case e.VertexID != "":
		return fmt.Sprintf("%s: %s (vertex=%s)", e.Code, e.Message, e.VertexID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDecodeError returns true if the error is a DecodeError.
// Uses errors.As to handle wrapped errors.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func missingField(vertexID, field, format string, args ...any) *DecodeError {
	return &DecodeError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf(format, args...),
		VertexID: vertexID,
		Field:    field,
	}
}

func malformedAdjacency(vertexID, field, format string, args ...any) *DecodeError {
	return &DecodeError{
		Code:     ErrCodeMalformedAdjacency,
		Message:  fmt.Sprintf(format, args...),
		VertexID: vertexID,
		Field:    field,
	}
}

func malformedDocument(vertexID, field, format string, args ...any) *DecodeError {
	return &DecodeError{
		Code:     ErrCodeMalformedDocument,
		Message:  fmt.Sprintf(format, args...),
		VertexID: vertexID,
		Field:    field,
	}
}
