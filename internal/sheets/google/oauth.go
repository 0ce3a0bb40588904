package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNoOAuthClient is returned when neither inline nor file OAuth client
// credentials are configured.
var ErrNoOAuthClient = errors.New("missing OAuth client credentials")

// ReadOAuthClient returns the OAuth client JSON, preferring the inline value
// over the file.
func ReadOAuthClient(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if f := strings.TrimSpace(file); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read OAuth client file: %w", err)
		}
		return b, nil
	}
	return nil, ErrNoOAuthClient
}

// OAuthConfig builds the user-consent flow for spreadsheet access.
func OAuthConfig(clientJSON []byte, redirectURL string) (*oauth2.Config, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, errors.New("token file holds no token")
	}
	return &tok, nil
}

// SaveToken writes tok readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// oauthTokenSource refreshes a stored user token as needed.
func oauthTokenSource(ctx context.Context, opts Options) (oauth2.TokenSource, error) {
	clientJSON, err := ReadOAuthClient(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, err
	}
	cfg, err := OAuthConfig(clientJSON, "")
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(opts.OAuthTokenFile)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}
