package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/internal/config"
	"github.com/fortiblox/intcode/internal/logging"
	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// Version information
var (
	Version   = service.Version
	GitCommit = "dev"
)

// app holds state shared by all commands.
type app struct {
	configPath string
	logLevel   string
	dataDir    string
	backend    string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "intcode",
		Short:         "Run, checkpoint and compile Intcode programs",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default <data-dir>/"+config.FileName+")")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.dataDir, "data-dir", "", "Data directory for checkpoints (default ~/.intcode)")
	flags.StringVar(&a.backend, "store", "", "Checkpoint store backend: bolt, badger or memory")

	root.AddCommand(
		newRunCmd(a),
		newCompileCmd(a),
		newEvalCmd(a),
		newCheckpointCmd(a),
		newServeCmd(a),
		newRemoteCmd(a),
		newCallCmd(a),
	)
	return root
}

// setup loads the configuration and applies flag overrides.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	switch {
	case a.configPath != "":
		a.cfg, err = config.Load(a.configPath)
	case a.dataDir != "":
		a.cfg, err = config.LoadOrDefault(filepath.Join(a.dataDir, config.FileName))
	default:
		a.cfg, err = config.LoadOrDefault(filepath.Join(config.DefaultDataDir(), config.FileName))
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		a.cfg.Log.Level = strings.ToLower(a.logLevel)
	}
	if a.dataDir != "" {
		a.cfg.Store.Path = a.dataDir
	}
	if a.backend != "" {
		a.cfg.Store.Backend = strings.ToLower(a.backend)
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.log, err = logging.New(a.cfg.Log.Level, a.cfg.Log.Format, cmd.ErrOrStderr())
	return err
}

// openStore opens the configured checkpoint store.
func (a *app) openStore() (checkpoint.Store, error) {
	return checkpoint.Open(checkpoint.Config{
		Backend: a.cfg.Store.Backend,
		Path:    a.cfg.Store.Path,
		Logger:  a.log,
	})
}

// newService creates a service over store, which may be nil.
func (a *app) newService(store checkpoint.Store, maxSteps uint64) *service.Service {
	return service.New(service.Config{Store: store, MaxSteps: maxSteps, Logger: a.log})
}

// readProgram loads and parses a program file.
func readProgram(path string) (intcode.Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withExit(exitIO, err)
	}
	mem, err := intcode.Parse(strings.Trim(string(data), "\r\n"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mem, nil
}

// inputFlags are the batch input sources shared by several commands.
type inputFlags struct {
	file   string
	values string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "input", "i", "", "File of input values (comma or whitespace separated)")
	cmd.Flags().StringVar(&f.values, "values", "", "Input values given inline, e.g. \"1,2,3\"")
}

// read returns the input file values followed by the inline values.
func (f *inputFlags) read() ([]int64, error) {
	var input []int64
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, withExit(exitIO, err)
		}
		values, err := intcode.ParseInput(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.file, err)
		}
		input = append(input, values...)
	}
	if f.values != "" {
		values, err := intcode.ParseInput(f.values)
		if err != nil {
			return nil, fmt.Errorf("--values: %w", err)
		}
		input = append(input, values...)
	}
	return input, nil
}

// parseID parses a checkpoint ID argument.
func parseID(s string) (types.Digest, error) {
	id, err := types.DigestFromBase58(s)
	if err != nil {
		return types.Digest{}, fmt.Errorf("invalid checkpoint id %q: %w", s, err)
	}
	return id, nil
}
