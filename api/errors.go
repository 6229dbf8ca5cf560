package api

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrUnsupported is returned when the input uses a WebAssembly feature that has no lowering, such as
	// call_indirect or memory.grow under MemoryGrowErrorHard.
	ErrUnsupported = errors.New("unsupported")
	// ErrMissingCapability is returned when a static capability list lacks a capability the module needs.
	ErrMissingCapability = errors.New("missing capability")
	// ErrTypeMismatch is returned when an operand has a different type than the instruction expects.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrStackUnderflow is returned when an instruction pops more operands than the current frame holds.
	ErrStackUnderflow = errors.New("stack underflow")
)

// ConfigError is returned when a configuration is invalid. Field is the dotted path of the offending
// field, such as "functions.0.params.1.kind".
type ConfigError struct {
	Field string
	Err   error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config: %s: %v", e.Field, e.Err)
}

// Unwrap allows errors.Is to match the cause.
func (e *ConfigError) Unwrap() error { return e.Err }

// DecodeError is returned when a WebAssembly binary is malformed. Offset is the byte offset into the
// binary where decoding stopped.
type DecodeError struct {
	Offset int
	Err    error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid wasm binary at offset %#x: %v", e.Offset, e.Err)
}

// Unwrap allows errors.Is to match the cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// BuildError is returned when a decoded module cannot be lowered to SPIR-V.
type BuildError struct {
	// Function is the wasm function index, including imports, or -1 for module-level failures.
	Function int
	// Offset is the byte offset of Instruction in the function body, or -1 if not applicable.
	Offset int
	// Instruction is the text format name of the failing instruction, if any.
	Instruction string
	Err         error
}

// Error implements error.
func (e *BuildError) Error() string {
	if e.Function < 0 {
		return fmt.Sprintf("module: %v", e.Err)
	}
	if e.Instruction == "" {
		return fmt.Sprintf("function[%d]: %v", e.Function, e.Err)
	}
	return fmt.Sprintf("function[%d] %s at offset %#x: %v", e.Function, e.Instruction, e.Offset, e.Err)
}

// Unwrap allows errors.Is to match the cause.
func (e *BuildError) Unwrap() error { return e.Err }

// EmitError is an internal invariant violation, such as a reference to an undeclared id. It never
// results from bad input: if one is returned, it is a bug in this library. The cause carries a stack
// trace, printed with the "%+v" verb.
type EmitError struct {
	Err error
}

// NewEmitError returns an EmitError whose cause records the caller's stack.
func NewEmitError(format string, args ...interface{}) *EmitError {
	return &EmitError{Err: pkgerrors.Errorf(format, args...)}
}

// Error implements error.
func (e *EmitError) Error() string {
	return fmt.Sprintf("internal error (please report a bug): %v", e.Err)
}

// Unwrap allows errors.Is to match the cause.
func (e *EmitError) Unwrap() error { return e.Err }

// Format implements fmt.Formatter so that "%+v" includes the stack of the cause.
func (e *EmitError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		_, _ = fmt.Fprintf(s, "internal error (please report a bug): %+v", e.Err)
		return
	}
	_, _ = io.WriteString(s, e.Error())
}

// IsInternal returns true if err, or any error it wraps, is an EmitError. Callers use this to tell a bug
// in this library apart from a problem with their input.
func IsInternal(err error) bool {
	var ee *EmitError
	return errors.As(err, &ee)
}
