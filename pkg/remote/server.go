// Package remote exposes the evaluation service over gRPC.
//
// The service is described by hand rather than generated from a .proto
// file. Messages travel with the "json" content-subtype.
package remote

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "intcode.Machine"

// Full method names.
const (
	MethodEval      = "/" + ServiceName + "/Eval"
	MethodResume    = "/" + ServiceName + "/Resume"
	MethodTranspile = "/" + ServiceName + "/Transpile"
)

// DefaultMaxMessageSize bounds request and response messages.
const DefaultMaxMessageSize = 64 << 20

// machineServer is the handler type registered in serviceDesc.
type machineServer interface {
	Eval(ctx context.Context, req *EvalRequest) (*EvalResponse, error)
	Resume(ctx context.Context, req *ResumeRequest) (*EvalResponse, error)
	Transpile(ctx context.Context, req *TranspileRequest) (*TranspileResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*machineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Eval", Handler: evalHandler},
		{MethodName: "Resume", Handler: resumeHandler},
		{MethodName: "Transpile", Handler: transpileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "intcode.proto",
}

func evalHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(EvalRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(machineServer).Eval(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodEval}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(machineServer).Eval(ctx, req.(*EvalRequest))
	})
}

func resumeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ResumeRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(machineServer).Resume(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodResume}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(machineServer).Resume(ctx, req.(*ResumeRequest))
	})
}

func transpileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(TranspileRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(machineServer).Transpile(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodTranspile}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(machineServer).Transpile(ctx, req.(*TranspileRequest))
	})
}

// ServerConfig configures the gRPC server.
type ServerConfig struct {
	// MaxMessageSize bounds received and sent messages.
	MaxMessageSize int

	// LogRequests logs every call at info level.
	LogRequests bool

	Logger zerolog.Logger
}

// Server serves the Machine service.
type Server struct {
	svc  *service.Service
	log  zerolog.Logger
	grpc *grpc.Server

	logRequests bool
}

// NewServer creates a gRPC server backed by svc.
func NewServer(cfg ServerConfig, svc *service.Service) *Server {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	s := &Server{
		svc:         svc,
		log:         cfg.Logger.With().Str("component", "grpc").Logger(),
		logRequests: cfg.LogRequests,
	}
	s.grpc = grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxMessageSize),
		grpc.MaxSendMsgSize(cfg.MaxMessageSize),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.UnaryInterceptor(s.logCall),
	)
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve serves on ln until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.grpc.GracefulStop()
		case <-stopped:
		}
	}()
	defer close(stopped)

	s.log.Info().Str("addr", ln.Addr().String()).Msg("gRPC server listening")
	if err := s.grpc.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop stops the server immediately.
func (s *Server) Stop() {
	s.grpc.Stop()
}

func (s *Server) logCall(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if s.logRequests || err != nil {
		ev := s.log.Info()
		if err != nil {
			ev = s.log.Warn().Str("code", status.Code(err).String()).Err(err)
		}
		ev.Str("method", info.FullMethod).Dur("took", time.Since(start)).Msg("grpc call")
	}
	return resp, err
}

// Eval implements the Eval method.
func (s *Server) Eval(ctx context.Context, req *EvalRequest) (*EvalResponse, error) {
	res, err := s.svc.Eval(ctx, intcode.Memory(req.Program), req.Input, req.Save)
	if err != nil {
		return nil, toStatus(err)
	}
	return newEvalResponse(res), nil
}

// Resume implements the Resume method.
func (s *Server) Resume(ctx context.Context, req *ResumeRequest) (*EvalResponse, error) {
	id, err := types.DigestFromBase58(req.Checkpoint)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid checkpoint id %q", req.Checkpoint)
	}
	res, err := s.svc.Resume(ctx, id, req.Input, req.Save)
	if err != nil {
		return nil, toStatus(err)
	}
	return newEvalResponse(res), nil
}

// Transpile implements the Transpile method.
func (s *Server) Transpile(ctx context.Context, req *TranspileRequest) (*TranspileResponse, error) {
	src, err := s.svc.Transpile(ctx, intcode.Memory(req.Program), req.Input)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TranspileResponse{Source: src}, nil
}

var invalidArgument = []error{
	intcode.ErrInvalidInput,
	intcode.ErrInvalidOpcode,
	intcode.ErrMissingParameter,
	intcode.ErrNegativePositionalParameter,
	intcode.ErrInvalidParameterMode,
	service.ErrEmptyProgram,
}

// toStatus maps service errors to gRPC status errors.
func toStatus(err error) error {
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	switch {
	case errors.Is(err, intcode.ErrStepLimitExceeded), errors.Is(err, intcode.ErrMemoryLimit):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, checkpoint.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, checkpoint.ErrCorrupt):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, service.ErrNoStore), errors.Is(err, checkpoint.ErrClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}
