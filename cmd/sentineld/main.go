// Sentineld is the IaC remediation daemon: per-session sandboxes, scanner
// aggregation, and approval-gated patch application over HTTP/SSE.
//
// Configuration is loaded from a YAML file and SENTINEL_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	sentineld
//
//	# Configure via flags and environment
//	SENTINEL_SERVER_PORT=9000 sentineld -config /etc/sentinel/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/config"
	"github.com/mukhil0212/Sentinel-RAG/internal/httpapi"
	"github.com/mukhil0212/Sentinel-RAG/internal/logging"
	"github.com/mukhil0212/Sentinel-RAG/internal/planner"
	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
	"github.com/mukhil0212/Sentinel-RAG/internal/scan"
	"github.com/mukhil0212/Sentinel-RAG/internal/services"
	"github.com/mukhil0212/Sentinel-RAG/internal/session"
	"github.com/mukhil0212/Sentinel-RAG/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sentineld %s (%s)\n", version, gitCommit)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run wires configuration, logger, store, sandbox manager, pipeline,
// planner, and HTTP server, then blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting sentineld",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("sandbox_root", cfg.Sandbox.Root))

	st := store.Open(cfg.Store.Path, logger.Underlying())
	defer st.Close()

	sandboxes, err := sandbox.NewManager(cfg.Sandbox.Root, logger.Underlying())
	if err != nil {
		return fmt.Errorf("failed to initialize sandbox manager: %w", err)
	}

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scan pipeline: %w", err)
	}

	pl := planner.NewDemo()

	sessions, err := session.NewService(sandboxes, pipeline, pl, st, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session service: %w", err)
	}
	defer sessions.Close()

	registry := services.NewRegistry(services.Options{
		Sandboxes: sandboxes,
		Pipeline:  pipeline,
		Planner:   pl,
		Sessions:  sessions,
		Store:     st,
	})

	srv, err := httpapi.NewServer(registry.Sessions(), logger.Underlying(), &httpapi.Config{
		Host:    "localhost",
		Port:    cfg.Server.Port,
		SeedDir: cfg.Sandbox.Seed,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildPipeline assembles the scanner adapters from config.
func buildPipeline(cfg *config.Config, logger *logging.Logger) (*scan.Pipeline, error) {
	scanners := []scan.Scanner{
		&scan.Checkov{BinOverride: cfg.Scanners.CheckovBin, Timeout: cfg.Scanners.Timeout},
		&scan.TFLint{BinOverride: cfg.Scanners.TFLintBin, Timeout: cfg.Scanners.Timeout},
	}

	if cfg.Scanners.Gitleaks {
		gl, err := scan.NewGitleaks()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gitleaks: %w", err)
		}
		scanners = append(scanners, gl)
	}

	return scan.NewPipeline(scanners, logger.Underlying())
}
