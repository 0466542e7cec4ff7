package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/pkg/gobuild"
	"github.com/fortiblox/intcode/pkg/transpiler"
)

func newCompileCmd(a *app) *cobra.Command {
	var (
		input         inputFlags
		output        string
		optLevel      string
		transpileOnly bool
		prompt        string
	)

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile a program into a standalone executable",
		Long: `Compile a program into a standalone executable.

The program is first evaluated against the given input. The generated Go
program prints the output produced so far and continues interactively from
where the evaluation stopped. With --transpile-only the Go source is written
instead of being built.`,
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

			src, err := transpiler.Transpile(program, values,
				transpiler.WithMaxSteps(a.cfg.Server.MaxSteps),
				transpiler.WithPrompt(prompt),
			)
			if err != nil {
				return err
			}

			if transpileOnly {
				if output == "" {
					_, err := fmt.Fprint(cmd.OutOrStdout(), src)
					return withExit(exitIO, err)
				}
				if output, err = outputPath(args[0], output); err != nil {
					return err
				}
				return withExit(exitIO, os.WriteFile(output, []byte(src), 0o644))
			}

			level := a.cfg.Compile.OptLevel
			if cmd.Flags().Changed("opt-level") {
				level = optLevel
			}
			parsed, err := gobuild.ParseOptLevel(level)
			if err != nil {
				return err
			}
			builder, err := gobuild.New(gobuild.Config{GoBin: a.cfg.Compile.Go, OptLevel: parsed})
			if err != nil {
				return err
			}

			if output, err = outputPath(args[0], output); err != nil {
				return err
			}
			a.log.Debug().Str("out", output).Strs("args", builder.Args(output)).Msg("building")
			if err := builder.Build(cmd.Context(), []byte(src), output); err != nil {
				return err
			}
			a.log.Info().Str("out", output).Str("opt", string(parsed)).Msg("compiled")
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: FILE without extension, or FILE.out when that is FILE itself)")
	cmd.Flags().StringVarP(&optLevel, "opt-level", "O", string(gobuild.DefaultOptLevel), "Optimisation level: 0, 1, 2, 3, s or z")
	cmd.Flags().BoolVar(&transpileOnly, "transpile-only", false, "Write the generated Go source instead of building it")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt printed by the generated program before each input")
	return cmd
}

// outputPath picks where compile writes its result. By default that is the
// program's base name without extension in the working directory. A path
// naming the program file itself is refused when given explicitly and gets
// an .out suffix when derived.
func outputPath(program, output string) (string, error) {
	if output != "" {
		if sameFile(program, output) {
			return "", fmt.Errorf("output %s would overwrite the program", output)
		}
		return output, nil
	}
	output = strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))
	if output == "" || output == "." {
		output = "a"
	}
	if sameFile(program, output) {
		output += ".out"
	}
	return output, nil
}

func sameFile(a, b string) bool {
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)
	if aerr == nil && berr == nil {
		return os.SameFile(ai, bi)
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
