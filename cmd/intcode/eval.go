package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/service"
)

// printResult writes output values one per line followed by a status line on
// stderr, or the whole result as JSON.
func printResult(cmd *cobra.Command, res *service.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	out := cmd.OutOrStdout()
	for _, v := range res.Output {
		fmt.Fprintln(out, v)
	}
	status := fmt.Sprintf("%s after %d steps", res.State, res.Steps)
	if !res.Completed {
		status = fmt.Sprintf("%s at %d after %d steps", res.State, res.IP, res.Steps)
	}
	if res.Checkpoint != nil {
		status += ", checkpoint " + res.Checkpoint.String()
	}
	fmt.Fprintln(cmd.ErrOrStderr(), status)
	return nil
}

func newEvalCmd(a *app) *cobra.Command {
	var (
		input    inputFlags
		save     bool
		asJSON   bool
		maxSteps uint64
	)

	cmd := &cobra.Command{
		Use:   "eval FILE",
		Short: "Evaluate a program against a fixed input",
		Long: `Evaluate a program against a fixed input and print its output.

A program that asks for more input than given is suspended. With --save the
suspended state is stored as a checkpoint that "intcode checkpoint resume"
can continue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := readProgram(args[0])
			if err != nil {
				return err
			}
			values, err := input.read()
			if err != nil {
				return err
			}

			var store checkpoint.Store
			if save {
				if store, err = a.openStore(); err != nil {
					return err
				}
				defer store.Close()
			}
			if !cmd.Flags().Changed("max-steps") {
				maxSteps = a.cfg.Server.MaxSteps
			}

			res, err := a.newService(store, maxSteps).Eval(cmd.Context(), program, values, save)
			if err != nil {
				return err
			}
			return printResult(cmd, res, asJSON)
		},
	}

	input.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Store a checkpoint when the program suspends")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "Abort after this many instructions (default from config)")
	return cmd
}
