package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Default client settings.
const (
	DefaultKeepaliveTime    = 30 * time.Second
	DefaultKeepaliveTimeout = 10 * time.Second
	DefaultCallTimeout      = 30 * time.Second
)

// ErrNoAddr is returned when a client is configured without an address.
var ErrNoAddr = errors.New("remote address is required")

// ClientConfig configures a Machine client.
type ClientConfig struct {
	// Addr is the server address (host:port).
	Addr string

	// CallTimeout bounds each call when the caller's context has no deadline.
	CallTimeout time.Duration

	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	MaxMessageSize int

	Logger zerolog.Logger
}

// DefaultClientConfig returns a client configuration for addr.
func DefaultClientConfig(addr string) ClientConfig {
	return ClientConfig{
		Addr:             addr,
		CallTimeout:      DefaultCallTimeout,
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		MaxMessageSize:   DefaultMaxMessageSize,
		Logger:           zerolog.Nop(),
	}
}

// Client calls a remote Machine service.
type Client struct {
	config ClientConfig
	conn   *grpc.ClientConn
	log    zerolog.Logger
}

// Dial connects to a Machine service. Extra options are appended to the
// defaults.
func Dial(cfg ClientConfig, extra ...grpc.DialOption) (*Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddr
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = DefaultKeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = DefaultKeepaliveTimeout
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(CodecName),
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
		),
	}
	opts = append(opts, extra...)

	//nolint:staticcheck // Dial keeps compatibility with older gRPC versions
	conn, err := grpc.Dial(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gRPC: %w", err)
	}
	return &Client{
		config: cfg,
		conn:   conn,
		log:    cfg.Logger.With().Str("component", "remote").Str("addr", cfg.Addr).Logger(),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	if _, ok := ctx.Deadline(); !ok && c.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()
	}
	start := time.Now()
	err := c.conn.Invoke(ctx, method, req, resp)
	c.log.Debug().Str("method", method).Dur("took", time.Since(start)).Err(err).Msg("call")
	return err
}

// Eval runs program remotely.
func (c *Client) Eval(ctx context.Context, program, input []int64, save bool) (*EvalResponse, error) {
	resp := new(EvalResponse)
	if err := c.invoke(ctx, MethodEval, &EvalRequest{Program: program, Input: input, Save: save}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Resume continues a checkpoint stored on the server.
func (c *Client) Resume(ctx context.Context, id string, input []int64, save bool) (*EvalResponse, error) {
	resp := new(EvalResponse)
	if err := c.invoke(ctx, MethodResume, &ResumeRequest{Checkpoint: id, Input: input, Save: save}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Transpile returns Go source continuing program after input.
func (c *Client) Transpile(ctx context.Context, program, input []int64) (string, error) {
	resp := new(TranspileResponse)
	if err := c.invoke(ctx, MethodTranspile, &TranspileRequest{Program: program, Input: input}, resp); err != nil {
		return "", err
	}
	return resp.Source, nil
}
