//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tamerun/internal/core"
	"tamerun/internal/log"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportTransaction(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	opts := Options{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "Integration",
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := New(ctx, opts, log.Discard())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	tx := core.Transaction{
		ID:     time.Now().Unix(),
		UserID: "integration",
		Kind:   core.KindExpense,
		Amount: decimal.RequireFromString("1.23"),
		Date:   core.DateOf(time.Now()),
		Memo:   "integration test row",
	}
	if err := c.ExportTransaction(ctx, tx, core.Category{Name: "Other"}); err != nil {
		t.Fatalf("export: %v", err)
	}
}
