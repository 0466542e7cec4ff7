package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/gobuild"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, checkpoint.BackendBolt, cfg.Store.Backend)
	assert.Equal(t, string(gobuild.DefaultOptLevel), cfg.Compile.OptLevel)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[store]
backend = "badger"
path = "/var/lib/intcode"

[compile]
opt_level = "z"

[server]
grpc_addr = ""
max_steps = 5000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, checkpoint.BackendBadger, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/intcode", cfg.Store.Path)
	assert.Equal(t, "z", cfg.Compile.OptLevel)
	assert.Equal(t, "go", cfg.Compile.Go)
	assert.Equal(t, "127.0.0.1:8547", cfg.Server.RPCAddr)
	assert.Empty(t, cfg.Server.GRPCAddr)
	assert.Equal(t, uint64(5000), cfg.Server.MaxSteps)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "[log\nlevel = 1"))
	assert.ErrorContains(t, err, "parse error")

	_, err = Load(writeConfig(t, "[store]\nbackend = \"bolt\"\ncolour = \"red\"\n"))
	assert.ErrorContains(t, err, `unknown key "store.colour"`)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Store.Backend = "sqlite"
	cfg.Compile.Go = ""
	cfg.Compile.OptLevel = "9"
	cfg.Server.RPCAddr = ""
	cfg.Server.GRPCAddr = ""

	err := cfg.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 6)
	assert.ErrorIs(t, err, checkpoint.ErrUnknownBackend)
	assert.ErrorIs(t, err, gobuild.ErrInvalidOptLevel)
}

func TestValidateStorePath(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "store.path")

	cfg.Store.Backend = checkpoint.BackendMemory
	assert.NoError(t, cfg.Validate())
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.MaxSteps = 42
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, cfg.Encode(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
