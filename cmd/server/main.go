package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvinsight/internal/config"
	"github.com/JonMunkholm/csvinsight/internal/core"
	"github.com/JonMunkholm/csvinsight/internal/export"
	"github.com/JonMunkholm/csvinsight/internal/gemini"
	"github.com/JonMunkholm/csvinsight/internal/insight"
	"github.com/JonMunkholm/csvinsight/internal/logging"
	"github.com/JonMunkholm/csvinsight/internal/metrics"
	"github.com/JonMunkholm/csvinsight/internal/tabular"
	"github.com/JonMunkholm/csvinsight/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration. A missing API key fails here.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"model", cfg.Gemini.Model,
		"encoding", cfg.Parse.Encoding,
		"analysis_max_concurrent", cfg.Analysis.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	shutdownTracer, err := metrics.InitTracer(cfg.Tracing.Enabled, os.Stdout)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	shutdownMeter, err := metrics.InitMeter(cfg.Metrics.Enabled, os.Stdout, cfg.Metrics.Interval)
	if err != nil {
		slog.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Capabilities
	parser, err := tabular.New(tabular.Config{
		Encoding:  cfg.Parse.Encoding,
		Delimiter: cfg.Parse.Delimiter,
	})
	if err != nil {
		slog.Error("failed to create parser", "error", err)
		os.Exit(1)
	}
	exporter := export.New()
	gate := core.NewGate(cfg.Capability.LoadTimeout, parser, exporter)

	// Language model
	model, err := gemini.New(ctx, gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		RequestTimeout:  cfg.Gemini.RequestTimeout,
		BreakerFailures: uint32(cfg.Gemini.BreakerFailures),
		BreakerCooldown: cfg.Gemini.BreakerCooldown,
	})
	if err != nil {
		slog.Error("failed to create model client", "error", err)
		os.Exit(1)
	}
	requester := insight.NewRequester(model, insight.Config{
		Model:          cfg.Gemini.Model,
		Language:       cfg.Analysis.Language,
		MaxRetries:     cfg.Analysis.MaxRetries,
		RetryBaseDelay: cfg.Analysis.RetryBaseDelay,
	})

	recorder, err := metrics.NewAnalysisMetrics(nil)
	if err != nil {
		slog.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	service, err := core.NewService(core.Deps{
		Parser:   parser,
		Analyzer: requester,
		Exporter: exporter,
		Gate:     gate,
		Limiter:  core.NewAnalysisLimiter(cfg.Analysis.MaxConcurrent, cfg.Analysis.MaxWaitTime),
		Recorder: recorder,
	}, core.Options{
		AnalysisTimeout: cfg.Analysis.Timeout,
		MaxSessions:     cfg.Session.MaxSessions,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	gate.Start(jobCtx)
	go service.StartCleanupScheduler(jobCtx, cfg.Session.CleanupInterval, cfg.Session.MaxIdle)

	server := web.NewServer(service, cfg, web.WithModelHealth(model))

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Runs are detached from requests, so wait for them separately.
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for analyses to complete", "active", status.Active)
			if err := service.WaitForAnalyses(shutdownCtx); err != nil {
				slog.Warn("analyses did not complete in time", "error", err)
			} else {
				slog.Info("all analyses completed")
			}
		}

		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown error", "error", err)
		}
		if err := shutdownMeter(shutdownCtx); err != nil {
			slog.Warn("meter shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}
