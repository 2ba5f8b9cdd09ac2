package sheets

import (
	"context"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// TransactionWriter appends one ingested transaction as a sheet row.
	TransactionWriter interface {
		Append(ctx context.Context, sessionID string, t core.Transaction) (rowRef string, err error)
	}
)
