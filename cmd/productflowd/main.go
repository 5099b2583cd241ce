// Productflowd is the product discovery daemon.
//
// It serves the HTTP API, runs the analysis and company research pipelines,
// and sweeps stale pipeline records.
//
// Configuration is loaded from an optional YAML file plus environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	productflowd
//
//	# Configure via file and environment
//	productflowd -config /etc/productflow/config.yaml
//	SERVER_PORT=9090 LLM_API_KEY=sk-... productflowd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/billing"
	"github.com/fyrsmithlabs/productflow/internal/blob"
	"github.com/fyrsmithlabs/productflow/internal/config"
	"github.com/fyrsmithlabs/productflow/internal/httpapi"
	"github.com/fyrsmithlabs/productflow/internal/insights"
	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/metrics"
	"github.com/fyrsmithlabs/productflow/internal/notify"
	"github.com/fyrsmithlabs/productflow/internal/research"
	"github.com/fyrsmithlabs/productflow/internal/runner"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	planID := flag.String("plan", "free", "plan id applied to all users until billing integration lands")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("productflowd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
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

	if err := run(ctx, *configPath, *planID); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run starts the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, configPath, planID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info(ctx, "starting productflowd",
		zap.String("version", version),
		zap.String("commit", gitCommit))

	m := metrics.New()

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	blobs, err := blob.NewFSStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer nc.Close()

		notifier, err = notify.NewNATSNotifier(nc, cfg.NATS.Subject, logger.Named("notify"))
		if err != nil {
			return fmt.Errorf("creating notifier: %w", err)
		}
		logger.Info(ctx, "nats notifications enabled", zap.String("url", cfg.NATS.URL))
	}

	invoker, err := llm.NewOpenAI(llm.OpenAIConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout.Duration(),
	}, logger.Named("llm"), m)
	if err != nil {
		return fmt.Errorf("creating llm invoker: %w", err)
	}

	limiter, err := billing.NewLimiter(st, billing.StaticPlanResolver(planID))
	if err != nil {
		return fmt.Errorf("creating limiter: %w", err)
	}

	// Pipeline runs budget for two sequential LLM calls plus persistence.
	pipelineTimeout := 2*cfg.LLM.Timeout.Duration() + 30*time.Second
	runs, err := runner.New(pipelineTimeout, logger.Named("runner"), m)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	insightsSvc, err := insights.NewService(st, invoker, notifier, runs, limiter, http.DefaultClient, logger.Named("insights"))
	if err != nil {
		return fmt.Errorf("creating insights service: %w", err)
	}

	researchSvc, err := research.NewService(st, invoker, notifier, runs, limiter, logger.Named("research"))
	if err != nil {
		return fmt.Errorf("creating research service: %w", err)
	}

	var sweeper *runner.Sweeper
	if cfg.Sweeper.Enabled {
		sweeper, err = runner.NewSweeper(runner.SweeperConfig{
			Interval:    cfg.Sweeper.Interval.Duration(),
			GracePeriod: cfg.Sweeper.GracePeriod.Duration(),
		}, st, logger.Named("sweeper"), m)
		if err != nil {
			return fmt.Errorf("creating sweeper: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	server, err := httpapi.NewServer(st, limiter, blobs, insightsSvc, researchSvc, logger.Named("http"), &httpapi.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		StorageRoot: cfg.Storage.Root,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown: stop taking requests, then drain in-flight
	// pipeline runs.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
	}
	if err := runs.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "pipeline drain incomplete", zap.Error(err))
	}

	return nil
}
