package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
)

const prompt = "> "

// readlineReader reads input lines with line editing. Ctrl-C ends input.
type readlineReader struct {
	rl *readline.Instance
}

func (r *readlineReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

// lineReader picks readline when reading an interactive terminal and a
// plain scanner otherwise. The returned func releases the terminal.
func lineReader(in io.Reader, out io.Writer) (intcode.LineReader, func(), error) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          prompt,
			InterruptPrompt: "^C",
			EOFPrompt:       "",
		})
		if err != nil {
			return nil, nil, err
		}
		return &readlineReader{rl: rl}, func() { rl.Close() }, nil
	}
	return intcode.NewLineReader(in, out, ""), func() {}, nil
}

func newRunCmd(a *app) *cobra.Command {
	var (
		maxSteps uint64
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a program interactively, reading input from stdin",
		Long: `Run a program interactively. Each input instruction reads one integer
line from stdin; output values are printed as they are produced.

When stdin ends while the program waits for input, the run suspends. With
--save the suspended state is stored as a checkpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := readProgram(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in, release, err := lineReader(cmd.InOrStdin(), out)
			if err != nil {
				return withExit(exitIO, err)
			}
			defer release()

			res, err := intcode.Run(program, 0, in, out, intcode.WithMaxSteps(maxSteps))
			if err != nil {
				return err
			}
			if res.Completed {
				return nil
			}

			a.log.Info().Int("ip", int(res.IP)).Msg("input ended, program suspended")
			if !save {
				return nil
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cp, err := checkpoint.Capture(program, res)
			if err != nil {
				return err
			}
			id, err := store.Put(cp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "checkpoint %s\n", id)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "Abort after this many instructions (0 = unlimited)")
	cmd.Flags().BoolVar(&save, "save", false, "Store a checkpoint when input ends before the program halts")
	return cmd
}
