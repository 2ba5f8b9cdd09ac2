package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/amqp"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/cli"
	gsheet "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/sheets/google"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/worker"
)

func main() {
	cfg, logger := cli.Boot()

	logger.Info("Starting agent-worker")

	// The worker's whole job is draining the export queue into Sheets.
	if !cfg.ExportEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	writer, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, writer, cfg.ExportBatchSize, cfg.ExportMaxAttempts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain anything a previous run left behind before consuming.
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
		// Keep running; the periodic poll will retry.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeStatementIngested(ctx, func(msg *amqp.StatementIngestedMessage) error {
			return exportWorker.HandleStatementMessage(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume statement messages: %w", err)
		}
		return nil
	})

	// Periodic poll catches messages lost while the broker was down.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := exportWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic export failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				purged, err := repo.PurgeExpired(ctx, time.Now().Add(-cfg.SessionTTL))
				if err != nil {
					logger.Error("Session purge failed", "error", err)
				} else if purged > 0 {
					logger.Info("Purged expired sessions", "count", purged)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
