package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/sheets"
)

const lastColumn = "I"

// Options configures the exporter. SheetName is a base name; each
// transaction lands in the tab "<year> <SheetName>" of its date.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	// OAuth user credentials, used instead of a service account when
	// OAuthTokenFile is set. The token comes from cmd/tamerun-sheets-auth.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

// Client appends transactions to a Google spreadsheet and implements
// ports.TransactionExporter.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger
	nowFn         func() time.Time

	mu    sync.Mutex
	known map[string]bool
}

func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts, logger)
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetBase:     base,
		logger:        logger.WithComponent(log.ComponentSheets),
		nowFn:         time.Now,
		known:         map[string]bool{},
	}, nil
}

// newSheetsService authenticates with a stored OAuth user token when one is
// configured, otherwise with a service account, preferring inline JSON over
// a file and falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	if strings.TrimSpace(opts.OAuthTokenFile) != "" {
		ts, err := oauthTokenSource(ctx, opts)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Creating Google Sheets service with OAuth user token",
			"token_file", opts.OAuthTokenFile)
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportTransaction appends t as one row to its year's tab, creating the
// tab with a header row on first use.
func (c *Client) ExportTransaction(ctx context.Context, t core.Transaction, cat core.Category) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrInvalidDate)
	}

	sheet := yearPrefixedName(c.sheetBase, t.Date.Year())
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A:%s", sheet, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{sheets.Row(t, cat, c.nowFn())}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTxID, t.ID,
		log.FieldOperation, log.OpExport,
		"range", ref)
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[title] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.known[s.Properties.Title] = true
		}
	}
	if c.known[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}

	header := &gsheet.ValueRange{Values: [][]any{sheets.Header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1:%s1", title, lastColumn), header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header to %s: %w", title, err)
	}

	c.logger.InfoContext(ctx, "Created export sheet", "sheet", title)
	c.known[title] = true
	return nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
