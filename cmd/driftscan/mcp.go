package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/deixis/driftscan/internal/config"
	dsmcp "github.com/deixis/driftscan/internal/mcp"
	"github.com/deixis/driftscan/internal/report"
	"github.com/deixis/driftscan/internal/runner"
	"github.com/deixis/driftscan/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	var (
		instructions bool
		httpAddr     string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), dsmcp.Instructions)
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, httpAddr)
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	return cmd
}

func serve(ctx context.Context, httpAddr string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining root: %w", err)
	}
	root, err := filepath.Abs(wd)
	if err != nil {
		return fmt.Errorf("determining root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	disk := report.NewDiskStore()
	defer func() { _ = disk.Remove() }()
	store := report.NewLRUStore(5, disk)

	eng := &workflow.Engine{
		Config: cfg,
		Runner: &runner.Runner{Root: root, Timeout: cfg.Timeout(), MaxOutput: cfg.MaxOutputBytes()},
		Root:   root,
	}
	server := dsmcp.NewServer(eng, store)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
