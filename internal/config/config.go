// Package config handles intcode.toml configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/gobuild"
)

// FileName is the configuration file looked up in the data directory.
const FileName = "intcode.toml"

// Config is the intcode.toml configuration.
type Config struct {
	Log     Log     `toml:"log"`
	Store   Store   `toml:"store"`
	Compile Compile `toml:"compile"`
	Server  Server  `toml:"server"`
}

// Log configures logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Store configures the checkpoint store.
type Store struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// Compile configures the Go toolchain used by intcode compile.
type Compile struct {
	Go       string `toml:"go"`
	OptLevel string `toml:"opt_level"`
}

// Server configures intcode serve. An empty address disables that server.
type Server struct {
	RPCAddr       string `toml:"rpc_addr"`
	GRPCAddr      string `toml:"grpc_addr"`
	DashboardAddr string `toml:"dashboard_addr"`
	MaxSteps      uint64 `toml:"max_steps"`
}

// DefaultDataDir returns ~/.intcode, or .intcode when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".intcode"
	}
	return filepath.Join(home, ".intcode")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Store: Store{
			Backend: checkpoint.BackendBolt,
			Path:    DefaultDataDir(),
		},
		Compile: Compile{
			Go:       "go",
			OptLevel: string(gobuild.DefaultOptLevel),
		},
		Server: Server{
			RPCAddr:  "127.0.0.1:8547",
			GRPCAddr: "127.0.0.1:8548",
			MaxSteps: 100_000_000,
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and returns the defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

var (
	levels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	formats = map[string]bool{"console": true, "json": true}
)

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var result *multierror.Error

	if !levels[c.Log.Level] {
		result = multierror.Append(result, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if !formats[c.Log.Format] {
		result = multierror.Append(result, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	switch c.Store.Backend {
	case checkpoint.BackendMemory:
	case checkpoint.BackendBolt, checkpoint.BackendBadger:
		if c.Store.Path == "" {
			result = multierror.Append(result, fmt.Errorf("store.path: required for backend %q", c.Store.Backend))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("store.backend: %w %q", checkpoint.ErrUnknownBackend, c.Store.Backend))
	}
	if c.Compile.Go == "" {
		result = multierror.Append(result, errors.New("compile.go: required"))
	}
	if _, err := gobuild.ParseOptLevel(c.Compile.OptLevel); err != nil {
		result = multierror.Append(result, fmt.Errorf("compile.opt_level: %w", err))
	}
	if c.Server.RPCAddr == "" && c.Server.GRPCAddr == "" {
		result = multierror.Append(result, errors.New("server: at least one of rpc_addr and grpc_addr is required"))
	}

	return result.ErrorOrNil()
}

// Encode writes c as TOML.
func (c *Config) Encode(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
