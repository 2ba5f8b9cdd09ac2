// Package worker contains the AMQP-driven side of the export pipeline:
// it reacts to statement messages and drains the pending-export queue
// into the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/amqp"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/sheets"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/storage"
)

// ExportWorker moves pending transactions from SQLite to the sheet.
type ExportWorker struct {
	storage     *storage.SQLiteRepository
	writer      sheets.TransactionWriter
	batchSize   int
	maxAttempts int
}

func NewExportWorker(storage *storage.SQLiteRepository, writer sheets.TransactionWriter, batchSize, maxAttempts int) *ExportWorker {
	return &ExportWorker{
		storage:     storage,
		writer:      writer,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// HandleStatementMessage processes a single statement message from AMQP.
// The message is only a nudge: the queue in SQLite is the source of
// truth, so the worker drains a batch rather than trusting the counts.
func (w *ExportWorker) HandleStatementMessage(ctx context.Context, msg *amqp.StatementIngestedMessage) error {
	slog.InfoContext(ctx, "Processing statement message",
		"session_id", msg.SessionID,
		"imported", msg.Imported)

	return w.ProcessPending(ctx)
}

// ProcessPending exports one batch of queued transactions. Failed rows
// are marked in storage and picked up again on a later pass, so per-row
// errors are logged rather than returned.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	items, err := w.storage.GetPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(items))

	for _, item := range items {
		if err := w.exportOne(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"id", item.ID,
				"session_id", item.SessionID,
				"error", err)
		}
	}

	return nil
}

// StartupCheck drains a larger batch at worker startup to recover from
// missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	items, err := w.storage.GetPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup check: %w", err)
	}

	if len(items) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(items))

	successCount := 0
	errorCount := 0

	for _, item := range items {
		if err := w.exportOne(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", item.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(items),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportOne(ctx context.Context, item storage.PendingTransaction) error {
	ref, err := w.writer.Append(ctx, item.SessionID, item.Transaction)
	if err != nil {
		if item.Attempts+1 >= w.maxAttempts {
			if markErr := w.storage.MarkExportFailed(ctx, item.ID, err.Error()); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export as abandoned",
					"id", item.ID, "error", markErr)
			}
		} else if markErr := w.storage.MarkExportError(ctx, item.ID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to record export error",
				"id", item.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkExported(ctx, item.ID); err != nil {
		// The append itself worked; a retry would duplicate the row, so
		// log and move on.
		slog.ErrorContext(ctx, "Failed to mark transaction as exported",
			"id", item.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		"id", item.ID,
		"session_id", item.SessionID,
		"sheet_ref", ref)

	return nil
}
