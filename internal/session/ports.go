// Package session defines the upload session domain: the identity that
// correlates a statement upload with its parsed transactions and the chat
// exchanges about them.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// ErrNotFound is returned for lookups of unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is one upload session. LastSeen advances on every authenticated
// touch and drives TTL expiry.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

// Ports for session-backed storage.
type (
	// Store owns the session lifecycle.
	Store interface {
		Create(ctx context.Context) (Session, error)
		Get(ctx context.Context, id string) (Session, error)
		Touch(ctx context.Context, id string) error
		Delete(ctx context.Context, id string) error
		// PurgeExpired removes sessions whose LastSeen is before cutoff
		// and returns how many were removed.
		PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
	}

	// TransactionStore holds the transactions imported into a session.
	TransactionStore interface {
		AppendTransactions(ctx context.Context, sessionID string, txns []core.Transaction) error
		ListTransactions(ctx context.Context, sessionID string) ([]core.Transaction, error)
	}
)
