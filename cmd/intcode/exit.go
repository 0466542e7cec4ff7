package main

import (
	"errors"
	"io/fs"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fortiblox/intcode/pkg/gobuild"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/rpc"
	"github.com/fortiblox/intcode/pkg/rpcpool"
)

// Process exit statuses.
const (
	exitOK       = 0
	exitOther    = 1
	exitIO       = 2
	exitProgram  = 3
	exitVM       = 4
	exitCompiler = 5
)

// exitError attaches an exit status to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

var vmErrors = []error{
	intcode.ErrInvalidOpcode,
	intcode.ErrMissingParameter,
	intcode.ErrNegativePositionalParameter,
	intcode.ErrInvalidParameterMode,
	intcode.ErrStepLimitExceeded,
	intcode.ErrMemoryLimit,
}

// exitCode maps err to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, intcode.ErrInvalidInput) {
		return exitProgram
	}
	for _, target := range vmErrors {
		if errors.Is(err, target) {
			return exitVM
		}
	}
	var be *gobuild.BuildError
	if errors.As(err, &be) || errors.Is(err, gobuild.ErrNoToolchain) {
		return exitCompiler
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.InvalidArgument, codes.ResourceExhausted:
			return exitVM
		case codes.Unavailable, codes.DeadlineExceeded:
			return exitIO
		}
	}
	var re *rpcpool.RPCError
	if errors.As(err, &re) {
		switch {
		case re.Code == rpc.InvalidProgram:
			return exitProgram
		case re.Code < rpc.InvalidProgram && re.Code >= rpc.ExecutionLimit:
			return exitVM
		}
		return exitOther
	}
	if errors.Is(err, rpcpool.ErrNoHealthyEndpoints) || errors.Is(err, rpcpool.ErrEndpointsFailed) {
		return exitIO
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return exitIO
	}
	return exitOther
}
