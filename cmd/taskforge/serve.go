package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskforge/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the request pipeline over HTTP",
	Long: `Start the HTTP API.

Endpoints:
  POST /process   {"request": "..."} runs the pipeline
  GET  /status    supervisor status and recent tasks
  GET  /health    agent health checks (503 when unhealthy)

The listen address comes from server.host and server.port in the
config; --addr overrides both.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.supervisor, addr)
	if a.demo != nil {
		srv.SetDemo(a.demo)
	}

	fmt.Printf("Listening on %s\n", addr)
	return srv.Start(ctx)
}
