// Command oauth-init runs the one-time OAuth consent flow for the
// Google Sheets exporter and saves the token where the agent and the
// worker expect it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

func main() {
	cfg, err := loadClientConfig()
	if err != nil {
		log.Fatalf("oauth client: %v", err)
	}

	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	// The OAuth client must list this URI among its authorized redirect
	// URIs.
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	code, err := waitForCode(cfg, redirectPort)
	if err != nil {
		log.Fatalf("authorization: %v", err)
	}

	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		log.Fatalf("token exchange: %v", err)
	}
	if err := saveToken(token); err != nil {
		log.Fatalf("save token: %v", err)
	}
}

func loadClientConfig() (*oauth2.Config, error) {
	var raw []byte
	switch {
	case os.Getenv("GOOGLE_OAUTH_CLIENT_JSON") != "":
		raw = []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	case os.Getenv("GOOGLE_OAUTH_CLIENT_FILE") != "":
		var err error
		raw, err = os.ReadFile(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	default:
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	return google.ConfigFromJSON(raw, sheets.SpreadsheetsScope)
}

// waitForCode serves the local redirect endpoint and blocks until the
// browser delivers an authorization code.
func waitForCode(cfg *oauth2.Config, port string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
			http.Error(w, "OAuth error: "+oauthErr, http.StatusBadRequest)
			errCh <- errors.New("consent denied: " + oauthErr)
			return
		}
		fmt.Fprintln(w, "Authorized. You can close this window.")
		codeCh <- r.URL.Query().Get("code")
	})
	go func() { _ = srv.ListenAndServe() }()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(5 * time.Minute):
		return "", errors.New("timed out waiting for authorization")
	case <-interrupted:
		return "", errors.New("interrupted")
	}
}

func saveToken(token *oauth2.Token) error {
	outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if outFile == "" {
		outFile = "token.json"
	}

	f, err := os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return err
	}
	fmt.Printf("Saved token to %s\n", outFile)
	return nil
}
