package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Code: ErrCodeInvalidArgument, Field: "has", Message: "property key is required"}
	assert.Equal(t, "has: property key is required", err.Error())

	err = &CompileError{Code: ErrCodePivot, Message: "pivot must be a variable added by the current step"}
	assert.Equal(t, "INVALID_PIVOT: pivot must be a variable added by the current step", err.Error())
}

func TestCompileErrorSentinels(t *testing.T) {
	wrapped := fmt.Errorf("compile: %w", notImplemented("timeLimit"))
	assert.True(t, errors.Is(wrapped, ErrNotImplemented))
	assert.False(t, errors.Is(wrapped, ErrInvalidArgument))
	assert.True(t, IsCompileError(wrapped))

	assert.True(t, errors.Is(&CompileError{Code: ErrCodeUnboundVariable}, ErrUnboundVariable))
	assert.Nil(t, (&CompileError{Code: ErrCodeSyntax}).Unwrap())
	assert.False(t, IsCompileError(errors.New("plain")))
}

func TestFormatCUEErrorPassesThroughPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, formatCUEError(plain))
	assert.Nil(t, formatCUEError(nil))
}
