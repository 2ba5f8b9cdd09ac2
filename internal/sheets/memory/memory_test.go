package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

func TestWriterAppendAndRows(t *testing.T) {
	w := NewWriter()

	ref, err := w.Append(context.Background(), "session-1", core.Transaction{
		Date:        "2024-01-05",
		Merchant:    "Starbucks",
		Amount:      4.50,
		Category:    core.CategoryDining,
		Description: "Starbucks",
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = w.Append(context.Background(), "session-2", core.Transaction{
		Date:        "2024-01-20",
		Merchant:    "Shell Gas",
		Amount:      40.00,
		Category:    core.CategoryTransport,
		Description: "Shell Gas",
	})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected second append: ref=%q err=%v", ref, err)
	}

	rows := w.Rows()
	if len(rows) != 2 {
		t.Fatalf("Rows() returned %d entries, want 2", len(rows))
	}
	if rows[0].SessionID != "session-1" || rows[1].Transaction.Merchant != "Shell Gas" {
		t.Errorf("unexpected rows: %+v", rows)
	}

	// Rows returns a copy.
	rows[0].SessionID = "mutated"
	if w.Rows()[0].SessionID != "session-1" {
		t.Error("Rows() should not expose internal state")
	}
}

func TestWriterRejectsInvalidTransaction(t *testing.T) {
	w := NewWriter()

	_, err := w.Append(context.Background(), "session-1", core.Transaction{
		Date:     "bad-date",
		Merchant: "Starbucks",
		Category: core.CategoryDining,
	})
	if !errors.Is(err, core.ErrBadDate) {
		t.Fatalf("expected ErrBadDate, got %v", err)
	}
	if len(w.Rows()) != 0 {
		t.Error("invalid transaction should not be stored")
	}
}

func TestWriterFailureInjection(t *testing.T) {
	w := NewWriter()
	boom := errors.New("sheets unavailable")

	w.Fail(boom)
	_, err := w.Append(context.Background(), "session-1", core.Transaction{
		Date:        "2024-01-05",
		Merchant:    "Starbucks",
		Amount:      4.50,
		Category:    core.CategoryDining,
		Description: "Starbucks",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	w.Fail(nil)
	if _, err := w.Append(context.Background(), "session-1", core.Transaction{
		Date:        "2024-01-05",
		Merchant:    "Starbucks",
		Amount:      4.50,
		Category:    core.CategoryDining,
		Description: "Starbucks",
	}); err != nil {
		t.Fatalf("expected recovery after Fail(nil), got %v", err)
	}
}
