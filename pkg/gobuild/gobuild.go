// Package gobuild compiles a generated Go source file into an executable
// with the local Go toolchain.
package gobuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// OptLevel selects the optimisation profile passed to go build.
type OptLevel string

// Optimisation levels.
const (
	Opt0 OptLevel = "0"
	Opt1 OptLevel = "1"
	Opt2 OptLevel = "2"
	Opt3 OptLevel = "3"
	OptS OptLevel = "s"
	OptZ OptLevel = "z"
)

// DefaultOptLevel is used when no level is given.
const DefaultOptLevel = Opt3

// goMod is the module file written next to the generated source.
const goMod = "module intcodeprog\n\ngo 1.22\n"

var (
	// ErrInvalidOptLevel is returned for an unknown optimisation level.
	ErrInvalidOptLevel = errors.New("invalid optimisation level")

	// ErrNoToolchain is returned when the go binary cannot be found.
	ErrNoToolchain = errors.New("go toolchain not found")
)

// ParseOptLevel parses one of 0, 1, 2, 3, s or z.
func ParseOptLevel(s string) (OptLevel, error) {
	switch l := OptLevel(strings.TrimSpace(s)); l {
	case Opt0, Opt1, Opt2, Opt3, OptS, OptZ:
		return l, nil
	case "":
		return DefaultOptLevel, nil
	default:
		return "", fmt.Errorf("%w: %q (want 0, 1, 2, 3, s or z)", ErrInvalidOptLevel, s)
	}
}

// Flags returns the go build flags for the level.
func (l OptLevel) Flags() []string {
	switch l {
	case Opt0:
		return []string{"-gcflags=all=-N -l"}
	case OptS:
		return []string{"-ldflags=-s -w"}
	case OptZ:
		return []string{"-ldflags=-s -w", "-trimpath"}
	default:
		return nil
	}
}

// BuildError carries the compiler's combined output.
type BuildError struct {
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("go build: %v", e.Err)
	}
	return fmt.Sprintf("go build: %v\n%s", e.Err, out)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Config configures a Builder.
type Config struct {
	// GoBin is the go binary. Empty means look it up in PATH.
	GoBin string

	// OptLevel is the optimisation level.
	OptLevel OptLevel

	// WorkDir is where temporary build directories are created. Empty means
	// the system default.
	WorkDir string
}

// Builder compiles generated sources.
type Builder struct {
	goBin    string
	optLevel OptLevel
	workDir  string
}

// New creates a Builder, resolving the go binary.
func New(cfg Config) (*Builder, error) {
	goBin := cfg.GoBin
	if goBin == "" {
		goBin = "go"
	}
	path, err := exec.LookPath(goBin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoToolchain, err)
	}
	level := cfg.OptLevel
	if level == "" {
		level = DefaultOptLevel
	}
	if _, err := ParseOptLevel(string(level)); err != nil {
		return nil, err
	}
	return &Builder{goBin: path, optLevel: level, workDir: cfg.WorkDir}, nil
}

// Args returns the full argument list used to build into out.
func (b *Builder) Args(out string) []string {
	args := []string{"build"}
	args = append(args, b.optLevel.Flags()...)
	return append(args, "-o", out, ".")
}

// Build writes src into a scratch module and compiles it to out.
func (b *Builder) Build(ctx context.Context, src []byte, out string) error {
	abs, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	dir, err := os.MkdirTemp(b.workDir, "intcode-build-")
	if err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "main.go"), src, 0o644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0o644); err != nil {
		return fmt.Errorf("write go.mod: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.goBin, b.Args(abs)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOFLAGS=", "GOWORK=off")
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return &BuildError{Output: output.String(), Err: err}
	}
	return nil
}
