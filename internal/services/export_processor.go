package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/sheets"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/storage"
)

// ExportProcessorConfig tunes the background export loop.
type ExportProcessorConfig struct {
	PollInterval    time.Duration // how often to look for pending transactions
	BatchSize       int           // max transactions per batch
	MaxAttempts     int           // attempts before a transaction is abandoned
	CleanupInterval time.Duration // how often to purge expired sessions
	SessionTTL      time.Duration // idle time after which a session expires
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxAttempts:     3,
		CleanupInterval: 1 * time.Hour,
		SessionTTL:      24 * time.Hour,
	}
}

// ExportProcessor drains pending transactions from SQLite into the
// spreadsheet in the background.
type ExportProcessor struct {
	storage *storage.SQLiteRepository
	writer  sheets.TransactionWriter
	config  ExportProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(store *storage.SQLiteRepository, writer sheets.TransactionWriter, config ExportProcessorConfig) *ExportProcessor {
	return &ExportProcessor{
		storage: store,
		writer:  writer,
		config:  config,
	}
}

// Start launches the background export loop.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("export processor already running")
	}

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.running = true

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"session_ttl", p.config.SessionTTL)

	return nil
}

// Stop halts the export loop and waits for it to finish.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// QueueDepth reports how many transactions still wait for export.
func (p *ExportProcessor) QueueDepth(ctx context.Context) (int64, error) {
	return p.storage.CountPendingExport(ctx)
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process any backlog right away instead of waiting a full interval.
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx)
		case <-cleanupTicker.C:
			p.purgeSessions(ctx)
		}
	}
}

func (p *ExportProcessor) processBatch(ctx context.Context) {
	items, err := p.storage.GetPendingExport(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending export batch", "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(items))

	for _, item := range items {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		ref, err := p.writer.Append(ctx, item.SessionID, item.Transaction)
		if err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}

		if err := p.storage.MarkExported(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction as exported",
				"id", item.ID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Exported transaction to sheet",
			"id", item.ID,
			"session_id", item.SessionID,
			"sheet_ref", ref)
	}
}

func (p *ExportProcessor) handleFailure(ctx context.Context, item storage.PendingTransaction, exportErr error) {
	slog.WarnContext(ctx, "Export attempt failed",
		"id", item.ID,
		"attempt", item.Attempts+1,
		"error", exportErr)

	if item.Attempts+1 >= p.config.MaxAttempts {
		if err := p.storage.MarkExportFailed(ctx, item.ID, exportErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark export as abandoned",
				"id", item.ID, "error", err)
			return
		}
		slog.ErrorContext(ctx, "Transaction export abandoned after max attempts",
			"id", item.ID,
			"attempts", item.Attempts+1)
		return
	}

	if err := p.storage.MarkExportError(ctx, item.ID, exportErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to record export error",
			"id", item.ID, "error", err)
	}
}

func (p *ExportProcessor) purgeSessions(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.SessionTTL)
	if _, err := p.storage.PurgeExpired(ctx, cutoff); err != nil {
		slog.ErrorContext(ctx, "Failed to purge expired sessions", "error", err)
	}
}
