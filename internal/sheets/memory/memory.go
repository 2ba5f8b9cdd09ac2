// Package memory provides an in-memory TransactionWriter for tests and
// local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// Row is one appended transaction together with its owning session.
type Row struct {
	SessionID   string
	Transaction core.Transaction
}

type Writer struct {
	mu   sync.Mutex
	rows []Row
	err  error
}

func NewWriter() *Writer {
	return &Writer{}
}

// Append stores the transaction and returns a synthetic row reference.
func (w *Writer) Append(_ context.Context, sessionID string, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return "", w.err
	}
	w.rows = append(w.rows, Row{SessionID: sessionID, Transaction: t})
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Row(nil), w.rows...)
}

// Fail makes subsequent appends return err. Pass nil to recover.
func (w *Writer) Fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}
