package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
	ports "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Row count cache: avoids re-reading column A before every append.
	mu                 sync.Mutex
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
	headerChecked      bool
}

// Ensure interface conformance
var _ ports.TransactionWriter = (*Client)(nil)

// Indirection over json.Unmarshal for token parsing.
var jsonUnmarshal = json.Unmarshal

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for a service account, otherwise a user
// OAuth client via GOOGLE_OAUTH_CLIENT_* plus GOOGLE_OAUTH_TOKEN_*.
// Optional: GOOGLE_SHEET_NAME (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: 2 * time.Minute,
	}, nil
}

// newSheetsService initializes a Sheets Service. Service account
// credentials win when present, otherwise a user OAuth client plus a
// stored token is used.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if creds, ok := serviceAccountCredentials(ctx); ok {
		service, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	cfg, err := oauthClientConfig()
	if err != nil {
		return nil, err
	}
	tok, err := oauthToken()
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx, goption.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// serviceAccountCredentials loads service account JSON from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(ctx context.Context) ([]byte, bool) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(raw), true
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read service account file", "path", path, "error", err)
		return nil, false
	}

	slog.InfoContext(ctx, "Read service account credentials", "path", path, "size", len(data))
	return data, true
}

func oauthClientConfig() (*oauth2.Config, error) {
	var data []byte
	switch {
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")) != "":
		data = []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")) != "":
		b, err := os.ReadFile(strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")))
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}

	cfg, err := googleauth.ConfigFromJSON(data, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func oauthToken() (*oauth2.Token, error) {
	var data []byte
	switch {
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON")) != "":
		data = []byte(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"))
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")) != "":
		b, err := os.ReadFile(strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")))
		if err != nil {
			return nil, fmt.Errorf("read oauth token file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	var tok oauth2.Token
	if err := jsonUnmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return &tok, nil
}

// Append writes one transaction row after the last occupied row and
// returns its range reference.
func (c *Client) Append(ctx context.Context, sessionID string, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	if err := c.ensureHeader(ctx); err != nil {
		return "", err
	}

	row, err := c.nextRow(ctx)
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A%d:F%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]interface{}{rowValues(sessionID, t)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}

	c.advanceRowCache()
	return rng, nil
}

// ensureHeader writes the header row into an empty sheet. A sheet that
// already has rows is left untouched even when its first row differs.
func (c *Client) ensureHeader(ctx context.Context) error {
	c.mu.Lock()
	done := c.headerChecked
	c.mu.Unlock()
	if done {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:F1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}

	switch {
	case len(resp.Values) == 0:
		vr := &gsheet.ValueRange{Values: [][]interface{}{headerValues()}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Wrote header row to sheet", "sheet", c.sheetName)
	case !headerPresent(resp.Values):
		slog.WarnContext(ctx, "Sheet has an unexpected header row, leaving it as is",
			"sheet", c.sheetName,
			"header", toStrings(resp.Values[0]))
	}

	c.mu.Lock()
	c.headerChecked = true
	c.mu.Unlock()
	return nil
}

// nextRow returns the next empty row, serving from the cache while it is
// fresh and re-reading column A otherwise.
func (c *Client) nextRow(ctx context.Context) (int, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		next := c.cachedRowCount + 1
		c.mu.Unlock()
		return next, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}

	c.mu.Lock()
	c.cachedRowCount = len(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	next := c.cachedRowCount + 1
	c.mu.Unlock()
	return next, nil
}

// advanceRowCache accounts for a row just written, if the cache is still fresh.
func (c *Client) advanceRowCache() {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		c.cachedRowCount++
	}
	c.mu.Unlock()
}

// InvalidateRowCache forces the next append to re-read the sheet size.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}
