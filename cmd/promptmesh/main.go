// promptmesh: a hot-reloaded prompt-catalogue MCP server.
//
// Usage:
//
//	promptmesh serve     # start the MCP server (stdio transport)
//	promptmesh version   # print the build version
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kvanta-dev/promptmesh/internal/config"
	promptmeshserver "github.com/kvanta-dev/promptmesh/internal/server"
)

var (
	osExit       = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "promptmesh",
		Short:         "A hot-reloaded prompt-catalogue MCP server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("promptmesh v%s\n", promptmeshserver.Version)
			return nil
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := newLogger(cfg)

	if cfg.Transport != config.TransportStdio {
		return &config.ConfigError{Field: "TRANSPORT_TYPE", Message: fmt.Sprintf("transport %q is accepted by configuration but not implemented; only stdio is wired", cfg.Transport)}
	}

	s, cleanup, err := promptmeshserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// On SIGINT/SIGTERM this returns and the deferred cleanup stops the
	// watcher/poller and the cache sweeper. Each watch stop func waits for
	// its goroutine, so a reload the watcher triggered runs to completion
	// first; a reload started by the reload or switch_source tool is not
	// waited for.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ServeStdio(s) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	out := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		} else {
			fmt.Fprintf(os.Stderr, "could not open LOG_FILE %q, logging to stderr: %v\n", cfg.LogFile, err)
		}
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
