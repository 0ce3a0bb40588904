// Package sheets defines the row layout shared by the ledger exporters.
package sheets

import (
	"time"

	"tamerun/internal/core"
)

// Header names the exported columns A:I in order.
var Header = []any{"Date", "Kind", "Category", "Amount", "Memo", "Receipt", "User", "Transaction ID", "Exported At"}

// Row renders a transaction in Header order. Amounts are plain decimal
// strings so the sheet's locale decides the display.
func Row(t core.Transaction, c core.Category, exportedAt time.Time) []any {
	return []any{
		t.Date.String(),
		string(t.Kind),
		c.Name,
		t.Amount.StringFixed(2),
		t.Memo,
		t.ReceiptImageURL,
		t.UserID,
		t.ID,
		exportedAt.UTC().Format(time.RFC3339),
	}
}
