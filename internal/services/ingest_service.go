package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/amqp"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/backend"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/ingest"
)

// IngestResult summarizes one statement upload.
type IngestResult struct {
	SessionID string `json:"sessionId"`
	Format    string `json:"format"`
	Imported  int    `json:"imported"`
	Total     int    `json:"total"`
}

// IngestService orchestrates statement ingestion across the session
// backend and AMQP.
type IngestService struct {
	store      backend.Backend
	parser     *ingest.Parser
	amqpClient *amqp.Client
}

func NewIngestService(store backend.Backend, parser *ingest.Parser, amqpClient *amqp.Client) *IngestService {
	if parser == nil {
		parser = ingest.NewParser(nil)
	}
	return &IngestService{
		store:      store,
		parser:     parser,
		amqpClient: amqpClient,
	}
}

// IngestStatement parses an uploaded statement and appends whatever it
// yields to the session. An unsupported or empty statement is not an
// error; it simply imports zero transactions.
func (s *IngestService) IngestStatement(ctx context.Context, sessionID, filename string, raw []byte) (IngestResult, error) {
	format := ingest.DetectFormat(filename, raw)
	txns := s.parser.Parse(format, raw)

	// Save to the local backend first (fast, reliable).
	if len(txns) > 0 {
		if err := s.store.AppendTransactions(ctx, sessionID, txns); err != nil {
			return IngestResult{}, fmt.Errorf("save transactions: %w", err)
		}
	} else {
		// Nothing to save, but the upload still counts as activity and
		// must fail on an unknown session.
		if err := s.store.Touch(ctx, sessionID); err != nil {
			return IngestResult{}, fmt.Errorf("touch session: %w", err)
		}
	}

	all, err := s.store.ListTransactions(ctx, sessionID)
	if err != nil {
		return IngestResult{}, fmt.Errorf("count transactions: %w", err)
	}

	// Publish async export nudge (non-blocking).
	if len(txns) > 0 {
		if err := s.publishStatementIngested(ctx, sessionID, len(txns)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish statement message",
				"session_id", sessionID, "error", err)
			// Don't fail the request - transactions are saved locally
		}
	}

	slog.InfoContext(ctx, "Statement ingested",
		"session_id", sessionID,
		"filename", filename,
		"format", string(format),
		"imported", len(txns),
		"total", len(all))

	return IngestResult{
		SessionID: sessionID,
		Format:    string(format),
		Imported:  len(txns),
		Total:     len(all),
	}, nil
}

func (s *IngestService) publishStatementIngested(ctx context.Context, sessionID string, imported int) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping statement message")
		return nil
	}

	return s.amqpClient.PublishStatementIngested(ctx, sessionID, imported)
}

// Close releases the AMQP connection. The backend is owned by the
// factory cleanup, not the service.
func (s *IngestService) Close() error {
	var errs []error

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ingest service: %v", errs)
	}

	return nil
}
