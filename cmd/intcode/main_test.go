package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/gobuild"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/remote"
	"github.com/fortiblox/intcode/pkg/rpc"
	"github.com/fortiblox/intcode/pkg/rpcpool"
	"github.com/fortiblox/intcode/pkg/service"
	"github.com/fortiblox/intcode/pkg/transpiler"
)

// twoInputs reads a value, echoes it, reads a second value and prints the sum.
const twoInputs = "3,15,4,15,3,16,1,15,16,17,4,17,99,0,0,0,0,0\n"

type cli struct {
	t       *testing.T
	dataDir string
	dir     string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dataDir: t.TempDir(), dir: t.TempDir()}
}

// file writes content into the scratch directory and returns its path.
func (c *cli) file(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with stdin and returns stdout and stderr.
func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-dir", c.dataDir, "--log-level", "warn"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) (string, string) {
	c.t.Helper()
	stdout, stderr, err := c.run(stdin, args...)
	require.NoError(c.t, err, stderr)
	return stdout, stderr
}

func TestEval(t *testing.T) {
	c := newCLI(t)
	prog := c.file("sum.ic", twoInputs)

	stdout, stderr := c.mustRun("", "eval", prog, "--values", "5,7")
	assert.Equal(t, "5\n12\n", stdout)
	assert.Contains(t, stderr, "halted")

	input := c.file("input.txt", "5\n")
	stdout, stderr = c.mustRun("", "eval", prog, "--input", input)
	assert.Equal(t, "5\n", stdout)
	assert.Contains(t, stderr, "suspended at 4")

	stdout, _ = c.mustRun("", "eval", prog, "--values", "5 7", "--json")
	var res service.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.Completed)
	assert.Equal(t, []int64{5, 12}, res.Output)
}

func TestRun(t *testing.T) {
	c := newCLI(t)
	prog := c.file("sum.ic", twoInputs)

	stdout, _ := c.mustRun("5\nabc\n7\n", "run", prog)
	assert.Equal(t, "5\nInvalid integer \"abc\", try again\n12\n", stdout)

	stdout, stderr := c.mustRun("5\n", "run", prog, "--save")
	assert.Equal(t, "5\n", stdout)
	assert.Contains(t, stderr, "checkpoint ")

	stdout, _ = c.mustRun("", "checkpoint", "list")
	assert.Contains(t, stdout, "ID")
	assert.Equal(t, 2, strings.Count(stdout, "\n"))
}

func TestCheckpointLifecycle(t *testing.T) {
	c := newCLI(t)
	prog := c.file("sum.ic", twoInputs)

	stdout, _ := c.mustRun("", "eval", prog, "--values", "5", "--save", "--json")
	var res service.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.NotNil(t, res.Checkpoint)
	id := res.Checkpoint.String()

	stdout, _ = c.mustRun("", "checkpoint", "list", "--program", prog)
	assert.Contains(t, stdout, id)

	stdout, _ = c.mustRun("", "checkpoint", "show", id)
	assert.Contains(t, stdout, "ip:       4")
	assert.Contains(t, stdout, "output:   [5]")

	stdout, _ = c.mustRun("", "checkpoint", "resume", id, "--values", "7")
	assert.Equal(t, "12\n", stdout)

	stdout, _ = c.mustRun("7\n", "checkpoint", "resume", id, "--interactive")
	assert.Equal(t, "12\n", stdout)

	stdout, _ = c.mustRun("", "checkpoint", "transpile", id)
	assert.True(t, strings.HasPrefix(stdout, transpiler.Header))
	assert.Contains(t, stdout, "var start Address = 4")

	archives := filepath.Join(c.dir, "archives")
	stdout, _ = c.mustRun("", "checkpoint", "export", id, "--dir", archives)
	assert.Equal(t, filepath.Join(archives, checkpoint.FileName(*res.Checkpoint))+"\n", stdout)

	c.mustRun("", "checkpoint", "delete", id)
	_, _, err := c.run("", "checkpoint", "show", id)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	stdout, _ = c.mustRun("", "checkpoint", "import", archives)
	assert.Equal(t, id+"\n", stdout)

	stdout, _ = c.mustRun("", "checkpoint", "show", id, "--json")
	var cp checkpoint.Checkpoint
	require.NoError(t, json.Unmarshal([]byte(stdout), &cp))
	assert.Equal(t, intcode.Address(4), cp.IP)
}

func TestCompileTranspileOnly(t *testing.T) {
	c := newCLI(t)
	prog := c.file("sum.ic", twoInputs)

	stdout, _ := c.mustRun("", "compile", prog, "--transpile-only", "--values", "5")
	assert.True(t, strings.HasPrefix(stdout, transpiler.Header))
	assert.Contains(t, stdout, `fmt.Println("5")`)

	out := filepath.Join(c.dir, "sum.go")
	c.mustRun("", "compile", prog, "--transpile-only", "-o", out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "var start Address = 0")
}

func TestCompileBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a binary with the go toolchain")
	}
	c := newCLI(t)
	prog := c.file("sum.ic", twoInputs)
	out := filepath.Join(c.dir, "sum")

	_, _, err := c.run("", "compile", prog, "--values", "5", "-o", out, "-O", "s")
	if errors.Is(err, gobuild.ErrNoToolchain) {
		t.Skip("go toolchain not available")
	}
	require.NoError(t, err)
	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.False(t, fi.IsDir())
}

func TestCompileKeepsProgram(t *testing.T) {
	c := newCLI(t)
	prog := c.file("prog", twoInputs)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(c.dir))
	t.Cleanup(func() { os.Chdir(wd) })

	out, err := outputPath("prog", "")
	require.NoError(t, err)
	assert.Equal(t, "prog.out", out)

	out, err = outputPath(prog, "")
	require.NoError(t, err)
	assert.Equal(t, "prog.out", out)

	out, err = outputPath(c.file("sum.ic", twoInputs), "")
	require.NoError(t, err)
	assert.Equal(t, "sum", out)

	_, err = outputPath("prog", prog)
	assert.Error(t, err)
	_, err = outputPath(prog, "./prog")
	assert.Error(t, err)

	_, _, err = c.run("", "compile", "prog", "--transpile-only", "-o", "prog")
	require.Error(t, err)
	data, err := os.ReadFile(prog)
	require.NoError(t, err)
	assert.Equal(t, twoInputs, string(data))
}

func TestExitCodes(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "eval", filepath.Join(c.dir, "missing.ic"))
	assert.Equal(t, exitIO, exitCode(err))

	_, _, err = c.run("", "eval", c.file("bad.ic", "1,zero,2"))
	assert.Equal(t, exitProgram, exitCode(err))
	assert.Contains(t, err.Error(), `Invalid token "zero" at position 1`)

	_, _, err = c.run("", "eval", c.file("space.ic", "1,0,0,0,99 "))
	assert.Equal(t, exitProgram, exitCode(err))

	stdout, _ := c.mustRun("", "eval", c.file("crlf.ic", "104,7,99\r\n"))
	assert.Equal(t, "7\n", stdout)

	_, _, err = c.run("", "eval", c.file("vm.ic", "42"))
	assert.Equal(t, exitVM, exitCode(err))

	_, _, err = c.run("", "eval", c.file("loop.ic", "1105,1,0"), "--max-steps", "100")
	assert.Equal(t, exitVM, exitCode(err))

	_, _, err = c.run("", "compile", c.file("ok.ic", "99"), "-O", "9")
	assert.Equal(t, exitOther, exitCode(err))

	_, _, err = c.run("", "checkpoint", "show", "not-an-id")
	assert.Equal(t, exitOther, exitCode(err))

	_, _, err = c.run("", "--log-level", "loud", "checkpoint", "list")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("usage"), exitOther},
		{&gobuild.BuildError{Output: "boom", Err: errors.New("exit status 1")}, exitCompiler},
		{gobuild.ErrNoToolchain, exitCompiler},
		{&os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, exitIO},
		{&intcode.InvalidOpcodeError{Opcode: 42, Position: 1}, exitVM},
		{&intcode.InvalidInputError{Token: "x", Position: 0}, exitProgram},
		{status.Error(codes.InvalidArgument, "bad"), exitVM},
		{status.Error(codes.Unavailable, "down"), exitIO},
		{withExit(exitCompiler, errors.New("wrapped")), exitCompiler},
		{&rpcpool.RPCError{Code: rpc.InvalidProgram}, exitProgram},
		{&rpcpool.RPCError{Code: rpc.ExecutionLimit}, exitVM},
		{&rpcpool.RPCError{Code: rpc.CheckpointNotFound}, exitOther},
		{rpcpool.ErrNoHealthyEndpoints, exitIO},
		{fmt.Errorf("%w: down", rpcpool.ErrEndpointsFailed), exitIO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestConfigFile(t *testing.T) {
	c := newCLI(t)
	cfg := c.file("intcode.toml", "[store]\nbackend = \"memory\"\n\n[server]\nmax_steps = 50\n")
	prog := c.file("loop.ic", "1105,1,0")

	_, _, err := c.run("", "--config", cfg, "eval", prog)
	assert.ErrorIs(t, err, intcode.ErrStepLimitExceeded)
}

func TestRemote(t *testing.T) {
	c := newCLI(t)
	prog := c.file("sum.ic", twoInputs)

	store := checkpoint.NewMemoryStore()
	defer store.Close()
	svc := service.New(service.Config{Store: store, MaxSteps: 10000})
	srv := remote.NewServer(remote.ServerConfig{Logger: zerolog.Nop()}, svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()
	addr := ln.Addr().String()

	stdout, stderr := c.mustRun("", "remote", "eval", prog, "--addr", addr, "--values", "5", "--save")
	assert.Equal(t, "5\n", stdout)
	assert.Contains(t, stderr, "remote checkpoint ")

	infos, err := store.List(checkpointProgram(t, prog))
	require.NoError(t, err)
	require.Len(t, infos, 1)

	stdout, _ = c.mustRun("", "remote", "resume", infos[0].ID.String(), "--addr", addr, "--values", "7")
	assert.Equal(t, "12\n", stdout)

	stdout, _ = c.mustRun("", "remote", "transpile", prog, "--addr", addr)
	assert.Contains(t, stdout, "var start Address = 0")

	_, _, err = c.run("", "remote", "eval", c.file("vm.ic", "42"), "--addr", addr)
	assert.Equal(t, exitVM, exitCode(err))
}

func TestCall(t *testing.T) {
	c := newCLI(t)

	store := checkpoint.NewMemoryStore()
	defer store.Close()
	svc := service.New(service.Config{Store: store, MaxSteps: 10000})
	ts := httptest.NewServer(rpc.New(rpc.DefaultConfig(), svc).Handler())
	defer ts.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	stdout, _ := c.mustRun("", "call", "eval", "3,0,4,0,99", "[9]", "--endpoint", deadURL, "--endpoint", ts.URL)
	var res service.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, []int64{9}, res.Output)
	assert.True(t, res.Completed)

	stdout, _ = c.mustRun("", "call", "getHealth", "--endpoint", ts.URL)
	assert.Equal(t, "\"ok\"\n", stdout)

	_, _, err := c.run("", "call", "eval", `"42"`, "--endpoint", ts.URL)
	assert.Equal(t, exitVM, exitCode(err))

	_, _, err = c.run("", "call", "getHealth", "--endpoint", deadURL)
	assert.Equal(t, exitIO, exitCode(err))
}

func TestServe(t *testing.T) {
	c := newCLI(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", c.dataDir, "--store", "memory", "serve",
		"--rpc-addr", "127.0.0.1:0", "--grpc-addr", "127.0.0.1:0", "--dashboard-addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeReleasesListeners(t *testing.T) {
	c := newCLI(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { busy.Close() })

	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcAddr := free.Addr().String()
	require.NoError(t, free.Close())

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", c.dataDir, "--store", "memory", "serve",
		"--rpc-addr", busy.Addr().String(), "--grpc-addr", grpcAddr})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(context.Background()) }()
	select {
	case err := <-done:
		assert.ErrorContains(t, err, "listen "+busy.Addr().String())
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	ln, err := net.Listen("tcp", grpcAddr)
	require.NoError(t, err, "gRPC port still bound")
	ln.Close()
}

func checkpointProgram(t *testing.T, path string) types.Digest {
	t.Helper()
	mem, err := readProgram(path)
	require.NoError(t, err)
	return types.ProgramDigest(mem)
}
