package rpc

import (
	"errors"
	"fmt"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// JSON-RPC 2.0 standard error codes.
const (
	// ParseError indicates invalid JSON was received.
	ParseError = -32700

	// InvalidRequest indicates the JSON sent is not a valid Request object.
	InvalidRequest = -32600

	// MethodNotFound indicates the method does not exist.
	MethodNotFound = -32601

	// InvalidParams indicates invalid method parameters.
	InvalidParams = -32602

	// InternalError indicates an internal JSON-RPC error.
	InternalError = -32603
)

// NodeUnhealthy indicates the server reported itself unhealthy.
const NodeUnhealthy = -32005

// Machine error codes, one per error category.
const (
	// InvalidProgram indicates the program text has a non-integer token.
	InvalidProgram = -32100

	// InvalidOpcode indicates an unknown opcode was decoded.
	InvalidOpcode = -32101

	// MissingParameter indicates an instruction ran past the end of memory.
	MissingParameter = -32102

	// NegativePosition indicates a negative position operand or jump target.
	NegativePosition = -32103

	// InvalidParameterMode indicates an unknown or illegal addressing mode.
	InvalidParameterMode = -32104

	// ExecutionLimit indicates the step or memory limit was exceeded.
	ExecutionLimit = -32105
)

// Checkpoint error codes.
const (
	// CheckpointNotFound indicates the checkpoint ID is unknown.
	CheckpointNotFound = -32110

	// StoreUnavailable indicates the server runs without a checkpoint store.
	StoreUnavailable = -32111

	// CheckpointCorrupt indicates an imported checkpoint failed to decode.
	CheckpointCorrupt = -32112
)

// Common error messages.
var (
	ErrParseError     = NewRPCError(ParseError, "Parse error")
	ErrInvalidRequest = NewRPCError(InvalidRequest, "Invalid Request")
	ErrMethodNotFound = NewRPCError(MethodNotFound, "Method not found")
	ErrInvalidParams  = NewRPCError(InvalidParams, "Invalid params")
	ErrInternalError  = NewRPCError(InternalError, "Internal error")
	ErrNodeUnhealthy  = NewRPCError(NodeUnhealthy, "Node is unhealthy")
)

// NewRPCError creates a new RPC error.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// NewRPCErrorWithData creates a new RPC error with additional data.
func NewRPCErrorWithData(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// InvalidParamsError creates an invalid params error with a custom message.
func InvalidParamsError(msg string) *RPCError {
	return NewRPCError(InvalidParams, msg)
}

// InvalidParamsErrorf creates an invalid params error with a formatted message.
func InvalidParamsErrorf(format string, args ...interface{}) *RPCError {
	return NewRPCError(InvalidParams, fmt.Sprintf(format, args...))
}

// InternalServerErrorf creates an internal server error with a formatted message.
func InternalServerErrorf(format string, args ...interface{}) *RPCError {
	return NewRPCError(InternalError, fmt.Sprintf(format, args...))
}

// machineCodes maps error categories to RPC codes, checked in order.
var machineCodes = []struct {
	err     error
	code    int
	message string
}{
	{intcode.ErrInvalidInput, InvalidProgram, "Invalid program"},
	{intcode.ErrInvalidOpcode, InvalidOpcode, "Invalid opcode"},
	{intcode.ErrMissingParameter, MissingParameter, "Missing parameter"},
	{intcode.ErrNegativePositionalParameter, NegativePosition, "Negative positional parameter"},
	{intcode.ErrInvalidParameterMode, InvalidParameterMode, "Invalid parameter mode"},
	{intcode.ErrStepLimitExceeded, ExecutionLimit, "Step limit exceeded"},
	{intcode.ErrMemoryLimit, ExecutionLimit, "Memory limit exceeded"},
	{checkpoint.ErrNotFound, CheckpointNotFound, "Checkpoint not found"},
	{service.ErrNoStore, StoreUnavailable, "Checkpoint store unavailable"},
	{checkpoint.ErrCorrupt, CheckpointCorrupt, "Corrupt checkpoint"},
	{service.ErrEmptyProgram, InvalidParams, "Empty program"},
}

// FromError converts a service error into an RPC error. The original message
// travels in Data.
func FromError(err error) *RPCError {
	for _, m := range machineCodes {
		if errors.Is(err, m.err) {
			return NewRPCErrorWithData(m.code, m.message, err.Error())
		}
	}
	return InternalServerErrorf("%v", err)
}
