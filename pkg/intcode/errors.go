package intcode

import (
	"errors"
	"fmt"
)

// Error categories. Every typed error below unwraps to one of these so callers
// can classify failures with errors.Is.
var (
	ErrInvalidInput                = errors.New("invalid input")
	ErrInvalidOpcode               = errors.New("invalid opcode")
	ErrMissingParameter            = errors.New("missing parameter")
	ErrNegativePositionalParameter = errors.New("negative positional parameter")
	ErrInvalidParameterMode        = errors.New("invalid parameter mode")

	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrMemoryLimit       = errors.New("memory limit exceeded")
)

// InvalidInputError reports a program token that is not an integer.
type InvalidInputError struct {
	Token    string
	Position int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("Invalid token %q at position %d", e.Token, e.Position)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InvalidOpcodeError reports an opcode outside the instruction set.
type InvalidOpcodeError struct {
	Opcode   int64
	Position Address
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("Invalid opcode \"%d\" at position %d", e.Opcode, e.Position)
}

func (e *InvalidOpcodeError) Unwrap() error { return ErrInvalidOpcode }

// MissingParameterError reports an operand word past the end of memory.
type MissingParameterError struct {
	Parameter int
	Opcode    int64
	Position  Address
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("Missing parameter %d for opcode \"%d\" at position %d", e.Parameter, e.Opcode, e.Position)
}

func (e *MissingParameterError) Unwrap() error { return ErrMissingParameter }

// NegativePositionalParameterError reports a position-mode operand, or a jump
// target, that resolved to a negative index.
type NegativePositionalParameterError struct {
	Value     int64
	Parameter int
	Opcode    int64
	Position  Address
}

func (e *NegativePositionalParameterError) Error() string {
	return fmt.Sprintf("Negative value %d for positional parameter %d for opcode \"%d\" at position %d",
		e.Value, e.Parameter, e.Opcode, e.Position)
}

func (e *NegativePositionalParameterError) Unwrap() error { return ErrNegativePositionalParameter }

// InvalidParameterModeError reports a mode digit other than 0 or 1, or an
// immediate operand where only a position is legal.
type InvalidParameterModeError struct {
	Mode      int64
	Parameter int
	Opcode    int64
	Position  Address
}

func (e *InvalidParameterModeError) Error() string {
	return fmt.Sprintf("Invalid parameter mode \"%d\" for parameter %d of opcode \"%d\" at position %d",
		e.Mode, e.Parameter, e.Opcode, e.Position)
}

func (e *InvalidParameterModeError) Unwrap() error { return ErrInvalidParameterMode }
