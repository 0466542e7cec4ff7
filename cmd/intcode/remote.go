package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/pkg/remote"
	"github.com/fortiblox/intcode/pkg/service"
)

func newRemoteCmd(a *app) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Evaluate on a remote intcode gRPC server",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "Server address (default: server.grpc_addr from config)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", remote.DefaultCallTimeout, "Per-call timeout")

	dial := func() (*remote.Client, error) {
		if addr == "" {
			addr = a.cfg.Server.GRPCAddr
		}
		cfg := remote.DefaultClientConfig(addr)
		cfg.CallTimeout = timeout
		cfg.Logger = a.log
		return remote.Dial(cfg)
	}

	cmd.AddCommand(newRemoteEvalCmd(dial), newRemoteResumeCmd(dial), newRemoteTranspileCmd(dial))
	return cmd
}

type dialFunc func() (*remote.Client, error)

// printRemote prints a remote result the way eval prints a local one.
func printRemote(cmd *cobra.Command, res *remote.EvalResponse, asJSON bool) error {
	local := &service.Result{
		Output:    res.Output,
		Completed: res.Completed,
		State:     res.State,
		IP:        res.IP,
		UsedInput: res.UsedInput,
		Steps:     res.Steps,
	}
	if err := printResult(cmd, local, asJSON); err != nil {
		return err
	}
	if res.Checkpoint != "" && !asJSON {
		fmt.Fprintf(cmd.ErrOrStderr(), "remote checkpoint %s\n", res.Checkpoint)
	}
	return nil
}

func newRemoteEvalCmd(dial dialFunc) *cobra.Command {
	var (
		input  inputFlags
		save   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "eval FILE",
		Short: "Evaluate a program remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := readProgram(args[0])
			if err != nil {
				return err
			}
			values, err := input.read()
			if err != nil {
				return err
			}
			client, err := dial()
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.Eval(cmd.Context(), program, values, save)
			if err != nil {
				return err
			}
			return printRemote(cmd, res, asJSON)
		},
	}
	input.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Store a checkpoint on the server when the program suspends")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newRemoteResumeCmd(dial dialFunc) *cobra.Command {
	var (
		input  inputFlags
		save   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "resume ID",
		Short: "Continue a checkpoint stored on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := input.read()
			if err != nil {
				return err
			}
			client, err := dial()
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.Resume(cmd.Context(), args[0], values, save)
			if err != nil {
				return err
			}
			return printRemote(cmd, res, asJSON)
		},
	}
	input.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Store a new checkpoint if the program suspends again")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newRemoteTranspileCmd(dial dialFunc) *cobra.Command {
	var input inputFlags

	cmd := &cobra.Command{
		Use:   "transpile FILE",
		Short: "Transpile a program remotely and print the Go source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := readProgram(args[0])
			if err != nil {
				return err
			}
			values, err := input.read()
			if err != nil {
				return err
			}
			client, err := dial()
			if err != nil {
				return err
			}
			defer client.Close()

			src, err := client.Transpile(cmd.Context(), program, values)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), src)
			return err
		},
	}
	input.register(cmd)
	return cmd
}
