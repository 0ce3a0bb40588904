// Command tamerun-sheets-auth runs the OAuth consent flow once and stores
// the user token the export worker reads from GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"tamerun/internal/cli"
	"tamerun/internal/config"
	"tamerun/internal/log"
	gsheet "tamerun/internal/sheets/google"
)

const consentTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentSheets)

	clientJSON, err := gsheet.ReadOAuthClient(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		cli.Fatal(logger, "Set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE", err)
	}

	// The OAuth client must list this redirect URI.
	redirectURL := "http://localhost:" + cfg.OAuthRedirectPort + "/callback"
	oauthCfg, err := gsheet.OAuthConfig(clientJSON, redirectURL)
	if err != nil {
		cli.Fatal(logger, "Invalid OAuth client", err)
	}

	tokenFile := cfg.GoogleOAuthTokenFile
	if tokenFile == "" {
		tokenFile = "token.json"
	}

	state, err := newState()
	if err != nil {
		cli.Fatal(logger, "Failed to create OAuth state", err)
	}

	sigCtx, _ := cli.GracefulShutdown(logger, time.Second, nil)
	ctx, cancel := context.WithTimeout(sigCtx, consentTimeout)
	defer cancel()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			errCh <- fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			codeCh <- q.Get("code")
		}
	})
	srv := &http.Server{Addr: ":" + cfg.OAuthRedirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			cli.Fatal(logger, "Token exchange failed", err)
		}
		if err := gsheet.SaveToken(tokenFile, tok); err != nil {
			cli.Fatal(logger, "Failed to save token", err, "path", tokenFile)
		}
		logger.Info("Saved OAuth token", "path", tokenFile)
	case err := <-errCh:
		cli.Fatal(logger, "Authorization failed", err)
	case <-ctx.Done():
		if sigCtx.Err() != nil {
			cli.Fatal(logger, "Authorization interrupted", sigCtx.Err())
		}
		cli.Fatal(logger, "Authorization timed out", ctx.Err())
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
