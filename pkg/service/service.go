// Package service ties the interpreter, transpiler and checkpoint store
// together behind one API shared by the CLI, the JSON-RPC server and the
// gRPC server.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/transpiler"
)

// Version is the service version reported over RPC.
const Version = "0.4.0"

// Service errors.
var (
	ErrNoStore      = errors.New("checkpoint store not configured")
	ErrEmptyProgram = errors.New("empty program")
)

// Config holds service configuration.
type Config struct {
	// Store persists checkpoints. Nil disables saving and resuming.
	Store checkpoint.Store

	// MaxSteps bounds every evaluation. Zero means no bound.
	MaxSteps uint64

	// Logger receives request logs.
	Logger zerolog.Logger
}

// Service evaluates programs and manages their checkpoints. It is safe for
// concurrent use; every request runs on its own machine.
type Service struct {
	store    checkpoint.Store
	maxSteps uint64
	log      zerolog.Logger
	started  time.Time

	evals       atomic.Uint64
	resumes     atomic.Uint64
	checkpoints atomic.Uint64
	failures    atomic.Uint64
}

// New creates a Service.
func New(cfg Config) *Service {
	return &Service{
		store:    cfg.Store,
		maxSteps: cfg.MaxSteps,
		log:      cfg.Logger.With().Str("component", "service").Logger(),
		started:  time.Now(),
	}
}

// Result is the outcome of Eval or Resume.
type Result struct {
	Output     []int64         `json:"output"`
	Completed  bool            `json:"completed"`
	State      string          `json:"state"`
	IP         intcode.Address `json:"ip"`
	UsedInput  int             `json:"usedInput"`
	Steps      uint64          `json:"steps"`
	Checkpoint *types.Digest   `json:"checkpoint,omitempty"`
}

func newResult(res *intcode.Result) *Result {
	output := res.Output
	if output == nil {
		output = []int64{}
	}
	return &Result{
		Output:    output,
		Completed: res.Completed,
		State:     res.State.String(),
		IP:        res.IP,
		UsedInput: res.UsedInput,
		Steps:     res.Steps,
	}
}

func (s *Service) options() []intcode.Option {
	return []intcode.Option{intcode.WithMaxSteps(s.maxSteps)}
}

// Eval runs program against input. When save is set and the run suspends,
// a checkpoint is stored and its ID returned in the result.
func (s *Service) Eval(ctx context.Context, program intcode.Memory, input []int64, save bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(program) == 0 {
		return nil, ErrEmptyProgram
	}
	if save && s.store == nil {
		return nil, ErrNoStore
	}
	s.evals.Add(1)

	digest := types.ProgramDigest(program)
	log := s.log.With().Str("program", digest.Short()).Logger()

	res, err := intcode.Eval(program, input, s.options()...)
	if err != nil {
		s.failures.Add(1)
		log.Debug().Err(err).Msg("eval failed")
		return nil, fmt.Errorf("eval: %w", err)
	}
	out := newResult(res)
	log.Debug().
		Int("inputs", len(input)).
		Str("state", out.State).
		Uint64("steps", res.Steps).
		Msg("eval")

	if save && !res.Completed {
		cp, err := checkpoint.Capture(program, res)
		if err != nil {
			return nil, err
		}
		id, err := s.put(cp)
		if err != nil {
			return nil, err
		}
		out.Checkpoint = &id
	}
	return out, nil
}

// Resume continues a stored checkpoint with more input. The result holds
// only output produced after the checkpoint. When save is set and the run
// suspends again, the new state is stored as a further checkpoint.
func (s *Service) Resume(ctx context.Context, id types.Digest, input []int64, save bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := s.Checkpoint(id)
	if err != nil {
		return nil, err
	}
	s.resumes.Add(1)

	res, err := cp.Resume(input, s.options()...)
	if err != nil {
		s.failures.Add(1)
		return nil, fmt.Errorf("resume %s: %w", id.Short(), err)
	}
	out := newResult(res)
	s.log.Debug().
		Str("checkpoint", id.String()).
		Int("inputs", len(input)).
		Str("state", out.State).
		Msg("resume")

	if save && !res.Completed {
		next, err := cp.Next(res)
		if err != nil {
			return nil, err
		}
		nid, err := s.put(next)
		if err != nil {
			return nil, err
		}
		out.Checkpoint = &nid
	}
	return out, nil
}

// Transpile evaluates program against input and returns Go source for the
// continuation.
func (s *Service) Transpile(ctx context.Context, program intcode.Memory, input []int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(program) == 0 {
		return "", ErrEmptyProgram
	}
	src, err := transpiler.Transpile(program, input, transpiler.WithMaxSteps(s.maxSteps))
	if err != nil {
		s.failures.Add(1)
		return "", fmt.Errorf("transpile: %w", err)
	}
	return src, nil
}

// TranspileCheckpoint returns Go source continuing a stored checkpoint. The
// generated program first prints all output captured in the checkpoint.
func (s *Service) TranspileCheckpoint(ctx context.Context, id types.Digest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cp, err := s.Checkpoint(id)
	if err != nil {
		return "", err
	}
	return transpiler.Render(cp.Result())
}

// Save stores a checkpoint directly, for imports.
func (s *Service) Save(cp *checkpoint.Checkpoint) (types.Digest, error) {
	if s.store == nil {
		return types.Digest{}, ErrNoStore
	}
	return s.put(cp)
}

func (s *Service) put(cp *checkpoint.Checkpoint) (types.Digest, error) {
	id, err := s.store.Put(cp)
	if err != nil {
		return types.Digest{}, fmt.Errorf("save checkpoint: %w", err)
	}
	s.checkpoints.Add(1)
	s.log.Info().
		Str("checkpoint", id.String()).
		Str("program", cp.Program.Short()).
		Int("ip", int(cp.IP)).
		Msg("checkpoint saved")
	return id, nil
}

// Checkpoint returns a stored checkpoint.
func (s *Service) Checkpoint(id types.Digest) (*checkpoint.Checkpoint, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Get(id)
}

// Checkpoints lists stored checkpoints of program, newest first. A zero
// digest lists all of them.
func (s *Service) Checkpoints(program types.Digest) ([]checkpoint.Info, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List(program)
}

// DeleteCheckpoint removes a stored checkpoint.
func (s *Service) DeleteCheckpoint(id types.Digest) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("checkpoint", id.String()).Msg("checkpoint deleted")
	return nil
}

// Stats is a snapshot of service counters.
type Stats struct {
	Evals       uint64        `json:"evals"`
	Resumes     uint64        `json:"resumes"`
	Checkpoints uint64        `json:"checkpoints"`
	Failures    uint64        `json:"failures"`
	Uptime      time.Duration `json:"uptime"`
	HasStore    bool          `json:"hasStore"`
}

// Stats returns the service counters.
func (s *Service) Stats() Stats {
	return Stats{
		Evals:       s.evals.Load(),
		Resumes:     s.resumes.Load(),
		Checkpoints: s.checkpoints.Load(),
		Failures:    s.failures.Load(),
		Uptime:      time.Since(s.started),
		HasStore:    s.store != nil,
	}
}
