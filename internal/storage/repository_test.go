package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "agent.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sess, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty session id")
	}

	got, err := repo.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("Get id = %q, want %q", got.ID, sess.ID)
	}
	if !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("Get created_at = %v, want %v", got.CreatedAt, sess.CreatedAt)
	}

	time.Sleep(20 * time.Millisecond)
	if err := repo.Touch(ctx, sess.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	touched, err := repo.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get after touch: %v", err)
	}
	if !touched.LastSeen.After(got.LastSeen) {
		t.Errorf("last_seen not bumped: before %v, after %v", got.LastSeen, touched.LastSeen)
	}

	if err := repo.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestUnknownSession(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if err := repo.Touch(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Touch error = %v, want ErrNotFound", err)
	}
	if err := repo.AppendTransactions(ctx, "missing", []core.Transaction{{}}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("AppendTransactions error = %v, want ErrNotFound", err)
	}
	if _, err := repo.ListTransactions(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("ListTransactions error = %v, want ErrNotFound", err)
	}
}

func TestAppendAndListTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sess, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := []core.Transaction{
		{Date: "2024-01-05", Merchant: "Starbucks", Amount: 4.50, Category: core.CategoryDining, Description: "Starbucks"},
		{Date: "2024-01-20", Merchant: "Shell Gas", Amount: 40.00, Category: core.CategoryTransport, Description: "Shell Gas"},
	}
	if err := repo.AppendTransactions(ctx, sess.ID, first); err != nil {
		t.Fatalf("AppendTransactions: %v", err)
	}
	second := []core.Transaction{
		{Date: "2024-02-01", Merchant: "Netflix", Amount: 15.99, Category: core.CategoryEntertainment, Description: "Netflix"},
	}
	if err := repo.AppendTransactions(ctx, sess.ID, second); err != nil {
		t.Fatalf("AppendTransactions second batch: %v", err)
	}

	got, err := repo.ListTransactions(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListTransactions returned %d rows, want 3", len(got))
	}
	want := append(append([]core.Transaction{}, first...), second...)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPendingExportFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sess, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	txns := []core.Transaction{
		{Date: "2024-01-05", Merchant: "Starbucks", Amount: 4.50, Category: core.CategoryDining, Description: "Starbucks"},
		{Date: "2024-01-06", Merchant: "Shell Gas", Amount: 40.00, Category: core.CategoryTransport, Description: "Shell Gas"},
		{Date: "2024-01-07", Merchant: "Netflix", Amount: 15.99, Category: core.CategoryEntertainment, Description: "Netflix"},
	}
	if err := repo.AppendTransactions(ctx, sess.ID, txns); err != nil {
		t.Fatalf("AppendTransactions: %v", err)
	}

	count, err := repo.CountPendingExport(ctx)
	if err != nil {
		t.Fatalf("CountPendingExport: %v", err)
	}
	if count != 3 {
		t.Fatalf("pending count = %d, want 3", count)
	}

	pending, err := repo.GetPendingExport(ctx, 2)
	if err != nil {
		t.Fatalf("GetPendingExport: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("GetPendingExport returned %d rows, want 2", len(pending))
	}
	if pending[0].Transaction != txns[0] || pending[1].Transaction != txns[1] {
		t.Errorf("pending rows out of order: got %+v then %+v", pending[0].Transaction, pending[1].Transaction)
	}
	if pending[0].SessionID != sess.ID {
		t.Errorf("pending session id = %q, want %q", pending[0].SessionID, sess.ID)
	}
	if pending[0].Attempts != 0 {
		t.Errorf("fresh row attempts = %d, want 0", pending[0].Attempts)
	}
	if pending[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	if err := repo.MarkExported(ctx, pending[0].ID); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	if count, _ = repo.CountPendingExport(ctx); count != 2 {
		t.Fatalf("pending count after export = %d, want 2", count)
	}

	if err := repo.MarkExportError(ctx, pending[1].ID, "sheets unavailable"); err != nil {
		t.Fatalf("MarkExportError: %v", err)
	}
	if count, _ = repo.CountPendingExport(ctx); count != 2 {
		t.Fatalf("pending count after retryable error = %d, want 2", count)
	}
	retried, err := repo.GetPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExport after error: %v", err)
	}
	if retried[0].ID != pending[1].ID || retried[0].Attempts != 1 {
		t.Errorf("retried row = id %d attempts %d, want id %d attempts 1",
			retried[0].ID, retried[0].Attempts, pending[1].ID)
	}

	if err := repo.MarkExportFailed(ctx, pending[1].ID, "gave up"); err != nil {
		t.Fatalf("MarkExportFailed: %v", err)
	}
	if count, _ = repo.CountPendingExport(ctx); count != 1 {
		t.Fatalf("pending count after failure = %d, want 1", count)
	}
	remaining, err := repo.GetPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExport after failure: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Transaction != txns[2] {
		t.Errorf("remaining queue = %+v, want only %+v", remaining, txns[2])
	}
}

func TestPurgeExpired(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if err := repo.AppendTransactions(ctx, a.ID, []core.Transaction{
		{Date: "2024-01-05", Merchant: "Starbucks", Amount: 4.50, Category: core.CategoryDining, Description: "Starbucks"},
	}); err != nil {
		t.Fatalf("AppendTransactions: %v", err)
	}

	purged, err := repo.PurgeExpired(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 0 {
		t.Fatalf("purged %d fresh sessions, want 0", purged)
	}

	purged, err = repo.PurgeExpired(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 2 {
		t.Fatalf("purged %d sessions, want 2", purged)
	}
	if _, err := repo.Get(ctx, a.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get after purge error = %v, want ErrNotFound", err)
	}
	count, err := repo.CountPendingExport(ctx)
	if err != nil {
		t.Fatalf("CountPendingExport: %v", err)
	}
	if count != 0 {
		t.Errorf("pending count after purge = %d, want 0", count)
	}
}
