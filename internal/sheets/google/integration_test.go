//go:build integration

package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	hasServiceAccount := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") != "" ||
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") != "" ||
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
	hasOAuth := (os.Getenv("GOOGLE_OAUTH_CLIENT_JSON") != "" || os.Getenv("GOOGLE_OAUTH_CLIENT_FILE") != "") &&
		(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON") != "" || os.Getenv("GOOGLE_OAUTH_TOKEN_FILE") != "")
	if !hasServiceAccount && !hasOAuth {
		t.Skip("Google credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	sessionID := "integration-" + time.Now().UTC().Format("20060102-150405")
	txns := []core.Transaction{
		{
			Date:        time.Now().UTC().Format(core.DateLayout),
			Merchant:    "Integration Test",
			Amount:      0.01,
			Category:    core.CategoryOther,
			Description: "append flow check",
		},
		{
			Date:        time.Now().UTC().Format(core.DateLayout),
			Merchant:    "Integration Test",
			Amount:      0.02,
			Category:    core.CategoryOther,
			Description: "append flow check, second row",
		},
	}

	var lastRef string
	for i, txn := range txns {
		ref, err := client.Append(ctx, sessionID, txn)
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if !strings.Contains(ref, "!A") {
			t.Errorf("Append %d returned unexpected ref %q", i, ref)
		}
		if ref == lastRef {
			t.Errorf("Append %d reused row reference %q", i, ref)
		}
		lastRef = ref
	}

	// Second append must not re-read the sheet size; verify the cached
	// path stays coherent after an invalidation too.
	client.InvalidateRowCache()
	ref, err := client.Append(ctx, sessionID, txns[0])
	if err != nil {
		t.Fatalf("Append after invalidation failed: %v", err)
	}
	if ref == lastRef {
		t.Errorf("Append after invalidation reused row reference %q", ref)
	}
}
