package main

import (
	"context"
	"fmt"
	"net"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/fortiblox/intcode/pkg/dashboard"
	"github.com/fortiblox/intcode/pkg/remote"
	"github.com/fortiblox/intcode/pkg/rpc"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		rpcAddr       string
		grpcAddr      string
		dashboardAddr string
		logRequests   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve evaluation over JSON-RPC and gRPC",
		Long: `Serve evaluation over JSON-RPC (POST /) and gRPC (intcode.Machine), and
optionally a web dashboard for browsing checkpoints. An empty address
disables that server. Checkpoints are kept in the configured store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("rpc-addr") {
				a.cfg.Server.RPCAddr = rpcAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				a.cfg.Server.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("dashboard-addr") {
				a.cfg.Server.DashboardAddr = dashboardAddr
			}
			if a.cfg.Server.RPCAddr == "" && a.cfg.Server.GRPCAddr == "" {
				return fmt.Errorf("no server enabled")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			svc := a.newService(store, a.cfg.Server.MaxSteps)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var listeners []func() error
			if addr := a.cfg.Server.RPCAddr; addr != "" {
				rpcConfig := rpc.DefaultConfig()
				rpcConfig.Addr = addr
				rpcConfig.LogRequests = logRequests
				rpcConfig.Logger = a.log
				server := rpc.New(rpcConfig, svc)
				listeners = append(listeners, func() error { return server.Start(ctx) })
			}
			if addr := a.cfg.Server.GRPCAddr; addr != "" {
				server := remote.NewServer(remote.ServerConfig{LogRequests: logRequests, Logger: a.log}, svc)
				listeners = append(listeners, func() error {
					ln, err := net.Listen("tcp", addr)
					if err != nil {
						return fmt.Errorf("listen %s: %w", addr, err)
					}
					return server.Serve(ctx, ln)
				})
			}
			if addr := a.cfg.Server.DashboardAddr; addr != "" {
				dashConfig := dashboard.DefaultConfig()
				dashConfig.Addr = addr
				dashConfig.Logger = a.log
				dash, err := dashboard.New(dashConfig, svc)
				if err != nil {
					return err
				}
				listeners = append(listeners, func() error { return dash.Start(ctx) })
			}

			// Servers listen only once every one of them is built. The first
			// to fail stops the others.
			errs := make(chan error, len(listeners))
			for _, serve := range listeners {
				go func(serve func() error) {
					err := serve()
					cancel()
					errs <- err
				}(serve)
			}
			var result *multierror.Error
			for range listeners {
				if err := <-errs; err != nil {
					result = multierror.Append(result, err)
				}
			}
			a.log.Info().Msg("servers stopped")
			return result.ErrorOrNil()
		},
	}

	cmd.Flags().StringVar(&rpcAddr, "rpc-addr", "", "JSON-RPC listen address (default from config)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (default from config)")
	cmd.Flags().StringVar(&dashboardAddr, "dashboard-addr", "", "Web dashboard listen address (default from config, empty = off)")
	cmd.Flags().BoolVar(&logRequests, "log-requests", false, "Log every request")
	return cmd
}
