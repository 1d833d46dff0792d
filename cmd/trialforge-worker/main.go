// Package main provides the trialforge worker binary entry point.
// The worker hosts the orchestration core and the Temporal worker that
// executes trial stages: parse, chunk, qa, validate, and evaluate.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-trialforge/internal/coordinator"
	"github.com/ahrav/go-trialforge/internal/ledger"
	"github.com/ahrav/go-trialforge/internal/run"
	"github.com/ahrav/go-trialforge/internal/stage"
	"github.com/ahrav/go-trialforge/internal/trial"
	"github.com/ahrav/go-trialforge/internal/worker"
	"github.com/ahrav/go-trialforge/internal/workflow"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := realMain(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "trialforge-worker: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Temporal at %s: %w", cfg.TemporalAddress, err)
	}
	defer temporalClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	taskLedger := ledger.NewInMemoryLedger()
	resolver := stage.NewResolver(taskLedger)
	sink := worker.InitializeEventSink()

	runner := workflow.NewTemporalRunner(temporalClient, cfg.TaskQueue)
	metrics := coordinator.NewMetrics(registry)
	coord := coordinator.New(taskLedger, resolver, runner, sink, metrics, logger)

	// The run manager's observer drives the validate-then-evaluate chain.
	// The manager itself, like the rest of the service facade, is consumed
	// by transports that embed this coordinator.
	run.NewManager(taskLedger, trial.NewManager(taskLedger), coord, logger)

	processor := worker.InitializeStageProcessor(cfg.ArtifactDir)

	w := sdkworker.New(temporalClient, cfg.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, sink, processor, coord)

	go serveMetrics(cfg.MetricsAddress, registry, logger)

	logger.Info("worker starting",
		"temporal_address", cfg.TemporalAddress,
		"task_queue", cfg.TaskQueue,
		"metrics_address", cfg.MetricsAddress)

	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	return nil
}

type config struct {
	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
	ArtifactDir       string
	MetricsAddress    string
}

func loadConfig() config {
	return config{
		TemporalAddress:   envOr("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: envOr("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         envOr("TRIALFORGE_TASK_QUEUE", workflow.TaskQueue),
		ArtifactDir:       envOr("TRIALFORGE_ARTIFACT_DIR", "/tmp/trialforge"),
		MetricsAddress:    envOr("TRIALFORGE_METRICS_ADDR", ":9090"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}
