package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvohq/perch/internal/observability"
	"github.com/corvohq/perch/internal/server"
	"github.com/corvohq/perch/internal/store"
	"github.com/corvohq/perch/pkg/queue"
)

var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "perch",
	Short: "perch — a competing-consumers work queue on a SQL table",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the perch server",
	RunE:  runServer,
}

var (
	bindAddr        string
	dataDir         string
	tableName       string
	maxRetries      int
	claimTimeout    time.Duration
	lookAhead       int
	shutdownTimeout time.Duration
	otelEnabled     bool
	otelEndpoint    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	serverCmd.Flags().StringVar(&bindAddr, "bind", ":8080", "HTTP server bind address")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for the SQLite database file")
	serverCmd.Flags().StringVar(&tableName, "table", "items", "Backing table name")
	serverCmd.Flags().IntVar(&maxRetries, "max-retries", 5, "Failed claim attempts a row survives before it is pruned")
	serverCmd.Flags().DurationVar(&claimTimeout, "timeout", time.Minute, "How long a claim may stay unfinalized before release")
	serverCmd.Flags().IntVar(&lookAhead, "look-ahead", 10, "Candidate scan window; size it >= expected concurrent consumers")
	serverCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 500*time.Millisecond, "Graceful HTTP shutdown timeout before force-close")
	serverCmd.Flags().BoolVar(&otelEnabled, "otel-enabled", false, "Enable OpenTelemetry tracing")
	serverCmd.Flags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint (host:port) for traces; if empty uses stdout exporter")

	addClientFlags(pushCmd, popCmd, countCmd)

	rootCmd.AddCommand(serverCmd, pushCmd, popCmd, countCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func runServer(cmd *cobra.Command, args []string) error {
	shutdownTracer, err := observability.InitTracer(otelEnabled, "perch", otelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	db, err := store.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	q, err := queue.New(cmd.Context(), queue.Config{
		Table:      tableName,
		MaxRetries: maxRetries,
		Timeout:    claimTimeout,
		LookAhead:  lookAhead,
	}, db.Write)
	if err != nil {
		return fmt.Errorf("initialize queue: %w", err)
	}

	srv := server.New(q, bindAddr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("forced shutdown", "error", err)
	}
	return shutdownTracer(context.Background())
}
