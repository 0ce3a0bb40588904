package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUpstreamEmpty is returned when the document-understanding call
	// produced no text at all.
	ErrUpstreamEmpty = errors.New("receipt analysis returned no text")
	// ErrMalformedPayload is returned when the text is not the expected JSON.
	ErrMalformedPayload = errors.New("receipt analysis returned malformed JSON")
)

// ReceiptItem is one line of a receipt. Price and Category may be unknown.
type ReceiptItem struct {
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	Category string              `json:"category"`
}

// ReceiptExtraction is the structured reading of a receipt image. Fields the
// reader could not determine are left empty (or invalid, for amounts).
type ReceiptExtraction struct {
	StoreName   string              `json:"storeName"`
	Date        string              `json:"date"`
	TotalAmount decimal.NullDecimal `json:"totalAmount"`
	Items       []ReceiptItem       `json:"items"`
}

// StripCodeFence removes a ```json or bare ``` fence wrapped around text.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NormalizeReceiptPayload turns the raw model answer into a ReceiptExtraction.
func NormalizeReceiptPayload(text string) (ReceiptExtraction, error) {
	if strings.TrimSpace(text) == "" {
		return ReceiptExtraction{}, ErrUpstreamEmpty
	}

	body := StripCodeFence(text)
	if body == "" {
		return ReceiptExtraction{}, fmt.Errorf("%w: empty body after removing code fence", ErrMalformedPayload)
	}

	// null would otherwise decode into an empty extraction.
	if body[0] != '{' {
		return ReceiptExtraction{}, fmt.Errorf("%w: top-level value is not an object", ErrMalformedPayload)
	}

	var out ReceiptExtraction
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return ReceiptExtraction{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if out.Items == nil {
		out.Items = []ReceiptItem{}
	}
	return out, nil
}

// ReceiptTransactions turns a reviewed receipt into one expense transaction
// per distinct category, in order of first appearance.
//
// Items are matched to categories by display name; items whose category is
// not a known expense category are skipped and items without a price count
// as zero. Each memo is the store name followed by the category's items, e.g.
// "Store\nMilk ¥198, Bread ¥150". The receipt date is used when it parses,
// otherwise fallback.
func ReceiptTransactions(r ReceiptExtraction, cats []Category, userID string, fallback Date, imageURL string) []NewTransaction {
	byName := make(map[string]Category, len(cats))
	for _, c := range cats {
		if c.Kind != KindExpense {
			continue
		}
		if _, dup := byName[c.Name]; !dup {
			byName[c.Name] = c
		}
	}

	date := fallback
	if d, err := ParseDate(r.Date); err == nil && !d.IsZero() {
		date = d
	}

	type group struct {
		category Category
		amount   decimal.Decimal
		lines    []string
	}
	var order []string
	groups := make(map[string]*group)

	for _, item := range r.Items {
		name := strings.TrimSpace(item.Category)
		c, ok := byName[name]
		if !ok {
			continue
		}
		g, seen := groups[name]
		if !seen {
			g = &group{category: c, amount: decimal.Zero}
			groups[name] = g
			order = append(order, name)
		}
		price := decimal.Zero
		if item.Price.Valid {
			price = item.Price.Decimal
		}
		g.amount = g.amount.Add(price)
		g.lines = append(g.lines, fmt.Sprintf("%s %s%s", strings.TrimSpace(item.Name), CurrencySymbol, price.String()))
	}

	out := make([]NewTransaction, 0, len(order))
	for _, name := range order {
		g := groups[name]
		out = append(out, NewTransaction{
			UserID:          userID,
			Kind:            KindExpense,
			Amount:          g.amount,
			CategoryID:      g.category.ID,
			Date:            date,
			Memo:            strings.TrimSpace(r.StoreName) + "\n" + strings.Join(g.lines, ", "),
			ReceiptImageURL: imageURL,
		})
	}
	return out
}
