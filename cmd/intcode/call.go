package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/pkg/rpcpool"
)

func newCallCmd(a *app) *cobra.Command {
	var (
		endpoints []string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "call METHOD [PARAM...]",
		Short: "Invoke a JSON-RPC method on one or more intcode servers",
		Long: `Invoke a JSON-RPC method and print its result as JSON.

Each PARAM is decoded as JSON when it parses and passed as a string
otherwise, so "call eval 104,7,99 [1,2]" sends ["104,7,99",[1,2]].
A one-word program such as 99 must be quoted: '"99"'.
With several --endpoint values the call fails over to the next server
when one cannot be reached.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(endpoints) == 0 {
				endpoints = []string{"http://" + a.cfg.Server.RPCAddr}
			}
			pool, err := rpcpool.New(rpcpool.Config{
				Endpoints:      endpoints,
				RequestTimeout: timeout,
				MaxFailures:    1,
				Logger:         a.log,
			})
			if err != nil {
				return err
			}
			defer pool.Stop()

			var result json.RawMessage
			if err := pool.Call(cmd.Context(), args[0], callParams(args[1:]), &result); err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", nil, "Server URL, repeatable (default: http://<server.rpc_addr>)")
	cmd.Flags().DurationVar(&timeout, "timeout", rpcpool.DefaultRequestTimeout, "Per-request timeout")
	return cmd
}

// callParams turns command line arguments into positional params.
func callParams(args []string) interface{} {
	if len(args) == 0 {
		return nil
	}
	params := make([]json.RawMessage, len(args))
	for i, arg := range args {
		if json.Valid([]byte(arg)) {
			params[i] = json.RawMessage(arg)
			continue
		}
		params[i], _ = json.Marshal(arg)
	}
	return params
}
