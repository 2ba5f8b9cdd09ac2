package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/advisor"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/amqp"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/backend"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/cli"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/config"
	apphttp "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/http"
	applog "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/log"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/services"
	gsheet "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/sheets/google"
)

func main() {
	cfg, logger := cli.Boot()

	logger.Info("Starting agent", "port", cfg.Port, "backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// The broker only carries export nudges, so it is worth connecting
	// only when an export worker will consume them. A missing broker
	// never blocks uploads.
	var amqpClient *amqp.Client
	if cfg.ExportEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without export notifications", "error", err)
			amqpClient = nil
		}
	}

	ingestSvc := services.NewIngestService(result.Backend, nil, amqpClient)

	adv := initAdvisor(logger, cfg)
	processor := initExportProcessor(logger, cfg, result)

	httpLogger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentHTTP,
	})
	opts := apphttp.Options{
		UploadMaxBytes:     cfg.UploadMaxBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             httpLogger,
	}
	if result.SQLite != nil {
		opts.Pinger = result.SQLite
	}

	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, ingestSvc, adv, opts)

	// Configure server timeouts and limits. The write timeout must
	// outlast a full advisor round trip.
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if processor != nil {
			if err := processor.Stop(shutdownCtx); err != nil {
				logger.Error("Export processor stop error", "error", err)
			}
		}
		if err := ingestSvc.Close(); err != nil {
			logger.Error("Ingest service close error", "error", err)
		}
	})

	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", "error", err)
			os.Exit(1)
		}
	} else {
		// The export processor owns session expiry when it runs; without
		// it the server purges on its own.
		go purgeLoop(ctx, logger, cfg, result.Backend)
	}

	logger.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// initAdvisor builds the Gemini advisor. A missing API key disables the
// chat endpoint; any other failure is a configuration bug and fatal.
func initAdvisor(logger *slog.Logger, cfg *config.Config) *advisor.Advisor {
	adv, err := advisor.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		if errors.Is(err, advisor.ErrNotConfigured) {
			logger.Info("Advisor disabled - no GEMINI_API_KEY provided")
			return nil
		}
		logger.Error("Failed to initialize advisor", "error", err)
		os.Exit(1)
	}
	logger.Info("Advisor initialized", "model", adv.Model())
	return adv
}

// initExportProcessor builds the background sheet exporter when export
// is configured. The pending queue lives in SQLite, so the memory
// backend cannot export.
func initExportProcessor(logger *slog.Logger, cfg *config.Config, result *backend.BackendResult) *services.ExportProcessor {
	if !cfg.ExportEnabled() {
		logger.Info("Sheet export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	if result.SQLite == nil {
		logger.Warn("Sheet export requires the sqlite backend, skipping",
			"backend", cfg.DataBackend)
		return nil
	}

	writer, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	processorCfg := services.DefaultExportProcessorConfig()
	processorCfg.PollInterval = cfg.ExportPollInterval
	processorCfg.BatchSize = cfg.ExportBatchSize
	processorCfg.MaxAttempts = cfg.ExportMaxAttempts
	processorCfg.CleanupInterval = cfg.CleanupInterval
	processorCfg.SessionTTL = cfg.SessionTTL

	return services.NewExportProcessor(result.SQLite, writer, processorCfg)
}

// purgeLoop drops sessions idle past the TTL.
func purgeLoop(ctx context.Context, logger *slog.Logger, cfg *config.Config, store backend.Backend) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			purged, err := store.PurgeExpired(purgeCtx, time.Now().Add(-cfg.SessionTTL))
			cancel()
			if err != nil {
				logger.Error("Session purge failed", "error", err)
			} else if purged > 0 {
				logger.Info("Purged expired sessions", "count", purged)
			}
		}
	}
}
