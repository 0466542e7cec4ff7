package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
)

func newCheckpointCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checkpoint",
		Aliases: []string{"cp"},
		Short:   "Manage stored checkpoints of suspended programs",
	}
	cmd.AddCommand(
		newCheckpointListCmd(a),
		newCheckpointShowCmd(a),
		newCheckpointResumeCmd(a),
		newCheckpointTranspileCmd(a),
		newCheckpointExportCmd(a),
		newCheckpointImportCmd(a),
		newCheckpointDeleteCmd(a),
	)
	return cmd
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(fn func(checkpoint.Store) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCheckpointListCmd(a *app) *cobra.Command {
	var programFile string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var program types.Digest
			if programFile != "" {
				mem, err := readProgram(programFile)
				if err != nil {
					return err
				}
				program = types.ProgramDigest(mem)
			}
			return a.withStore(func(store checkpoint.Store) error {
				infos, err := store.List(program)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPROGRAM\tIP\tINPUTS\tOUTPUTS\tCREATED")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
						info.ID, info.Program.Short(), info.IP, info.UsedInput, info.Outputs,
						info.CreatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&programFile, "program", "p", "", "Only list checkpoints of this program file")
	return cmd
}

func newCheckpointShowCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(store checkpoint.Store) error {
				cp, err := store.Get(id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(cp)
				}
				fmt.Fprintf(out, "id:       %s\n", id)
				fmt.Fprintf(out, "program:  %s\n", cp.Program)
				fmt.Fprintf(out, "ip:       %d\n", cp.IP)
				fmt.Fprintf(out, "inputs:   %d\n", cp.UsedInput)
				fmt.Fprintf(out, "output:   %v\n", cp.Output)
				fmt.Fprintf(out, "memory:   %d words\n", len(cp.Memory))
				fmt.Fprintf(out, "created:  %s\n", cp.CreatedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the checkpoint as JSON")
	return cmd
}

func newCheckpointResumeCmd(a *app) *cobra.Command {
	var (
		input       inputFlags
		save        bool
		asJSON      bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "resume ID",
		Short: "Continue a checkpoint with more input",
		Long: `Continue a checkpoint with more input. Only output produced after the
checkpoint is printed.

With --interactive input is read from stdin as in "intcode run".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(store checkpoint.Store) error {
				if interactive {
					return resumeInteractive(cmd, a, store, id, save)
				}
				values, err := input.read()
				if err != nil {
					return err
				}
				res, err := a.newService(store, a.cfg.Server.MaxSteps).Resume(cmd.Context(), id, values, save)
				if err != nil {
					return err
				}
				return printResult(cmd, res, asJSON)
			})
		},
	}

	input.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Store a new checkpoint if the program suspends again")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Read input from stdin")
	return cmd
}

func resumeInteractive(cmd *cobra.Command, a *app, store checkpoint.Store, id types.Digest, save bool) error {
	cp, err := store.Get(id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	in, release, err := lineReader(cmd.InOrStdin(), out)
	if err != nil {
		return withExit(exitIO, err)
	}
	defer release()

	res, err := cp.Interact(in, out, intcode.WithMaxSteps(a.cfg.Server.MaxSteps))
	if err != nil || res.Completed || !save {
		return err
	}
	next, err := cp.Next(res)
	if err != nil {
		return err
	}
	nid, err := store.Put(next)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "checkpoint %s\n", nid)
	return nil
}

func newCheckpointTranspileCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "transpile ID",
		Short: "Write Go source that continues a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(store checkpoint.Store) error {
				src, err := a.newService(store, a.cfg.Server.MaxSteps).TranspileCheckpoint(cmd.Context(), id)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = fmt.Fprint(cmd.OutOrStdout(), src)
					return withExit(exitIO, err)
				}
				return withExit(exitIO, os.WriteFile(output, []byte(src), 0o644))
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the source to this file instead of stdout")
	return cmd
}

func newCheckpointExportCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export ID...",
		Short: "Write checkpoints to archive files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store checkpoint.Store) error {
				for _, arg := range args {
					id, err := parseID(arg)
					if err != nil {
						return err
					}
					cp, err := store.Get(id)
					if err != nil {
						return err
					}
					path, err := checkpoint.WriteFile(dir, cp)
					if err != nil {
						return withExit(exitIO, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write archives to")
	return cmd
}

func newCheckpointImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import PATH...",
		Short: "Store checkpoints from archive files or directories of archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			for _, arg := range args {
				fi, err := os.Stat(arg)
				if err != nil {
					return withExit(exitIO, err)
				}
				if !fi.IsDir() {
					paths = append(paths, arg)
					continue
				}
				archives, err := checkpoint.FindCheckpoints(arg)
				if err != nil {
					return withExit(exitIO, err)
				}
				for _, ar := range archives {
					paths = append(paths, ar.Path)
				}
			}

			return a.withStore(func(store checkpoint.Store) error {
				for _, path := range paths {
					cp, err := checkpoint.ReadFile(path)
					if err != nil {
						return err
					}
					id, err := store.Put(cp)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newCheckpointDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete checkpoints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store checkpoint.Store) error {
				for _, arg := range args {
					id, err := parseID(arg)
					if err != nil {
						return err
					}
					if err := store.Delete(id); err != nil {
						return err
					}
					a.log.Info().Str("checkpoint", id.String()).Msg("deleted")
				}
				return nil
			})
		},
	}
}
