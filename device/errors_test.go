package device

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Memory Error",
			err:      ErrOutOfMemory,
			wantType: ErrTypeMemory,
			wantOp:   "Malloc",
			wantMsg:  "out of memory",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Arg Error",
			err:      ErrInvalidSize,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Malloc",
			wantMsg:  "size must be positive",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Invalid Launch Error",
			err:      ErrInvalidLaunch,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Launch",
			wantMsg:  "grid and block dimensions must be positive",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Execution Error",
			err:      NewExecutionError("Launch", "kernel failed", ErrKernelPanic),
			wantType: ErrTypeExecution,
			wantOp:   "Launch",
			wantMsg:  "kernel failed",
			checkFn:  IsExecutionError,
		},
		{
			name:     "Numerical Error",
			err:      NewNumericalError("Verify", "mismatch", 3),
			wantType: ErrTypeNumerical,
			wantOp:   "Verify",
			wantMsg:  "mismatch",
			checkFn:  IsNumericalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr, ok := tt.err.(*Error)
			require.True(t, ok, "expected *Error, got %T", tt.err)
			assert.Equal(t, tt.wantType, devErr.Type)
			assert.Equal(t, tt.wantOp, devErr.Op)
			assert.Equal(t, tt.wantMsg, devErr.Message)
			assert.True(t, tt.checkFn(tt.err))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	baseErr := errors.New("base error")
	wrappedErr := NewMemoryError("Test", "wrapped error", baseErr)
	assert.True(t, errors.Is(wrappedErr, baseErr))

	// Classification survives further wrapping.
	outer := pkgerrors.Wrapf(wrappedErr, "allocating matrix %q", "A")
	assert.True(t, IsMemoryError(outer))
	assert.False(t, IsExecutionError(outer))
	assert.False(t, IsMemoryError(baseErr))
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{ErrTypeMemory, "AllocationFailure"},
		{ErrTypeInvalidArg, "InvalidArgument"},
		{ErrTypeExecution, "BackendExecution"},
		{ErrTypeNumerical, "Numerical"},
		{ErrorType(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.errType.String())
		})
	}
}
