package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ErrorCode categorizes compilation errors.
type ErrorCode string

const (
	// ErrCodeUnboundVariable indicates a variable's name was requested before
	// the variable was added to a context.
	ErrCodeUnboundVariable ErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeInvalidArgument indicates a step argument of the wrong type or
	// arity (user input error).
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeNotImplemented indicates a step the compiler does not support.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeInvalidStep indicates a step applied where it cannot apply,
	// e.g. out() on a scalar.
	ErrCodeInvalidStep ErrorCode = "INVALID_STEP"

	// ErrCodePivot indicates a step tried to move the pivot to a variable it
	// did not add.
	ErrCodePivot ErrorCode = "INVALID_PIVOT"

	// ErrCodeSyntax indicates a malformed traversal definition.
	ErrCodeSyntax ErrorCode = "SYNTAX"
)

// Sentinel errors matched by errors.Is against a *CompileError's code.
var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotImplemented  = errors.New("not implemented")
)

// CompileError represents a compilation error, with a source position when
// the traversal came from a CUE file.
//
// Compilation errors abort translation of the current traversal and are
// never retried.
type CompileError struct {
	Code    ErrorCode
	Field   string // step name or CUE field path
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap maps the error code onto its sentinel so callers can use errors.Is.
func (e *CompileError) Unwrap() error {
	switch e.Code {
	case ErrCodeUnboundVariable:
		return ErrUnboundVariable
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeNotImplemented:
		return ErrNotImplemented
	}
	return nil
}

// IsCompileError returns true if err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func notImplemented(step string) *CompileError {
	return &CompileError{
		Code:    ErrCodeNotImplemented,
		Field:   step,
		Message: fmt.Sprintf("step %s() is not implemented", step),
	}
}

func invalidArgument(step, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvalidArgument,
		Field:   step,
		Message: fmt.Sprintf(format, args...),
	}
}

func invalidStep(step, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvalidStep,
		Field:   step,
		Message: fmt.Sprintf(format, args...),
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Code:    ErrCodeSyntax,
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
