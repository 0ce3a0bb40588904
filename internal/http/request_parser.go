// Package http provides the web server, routes and handlers.
//
// This file turns query strings and form posts into domain values. Parsing
// never trusts the client: every field is sanitized and validated here or
// by the domain contract it feeds.

package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tamerun/internal/core"
)

var (
	// ErrMissingImage is returned when a receipt upload has no image part.
	ErrMissingImage      = errors.New("no receipt image uploaded")
	ErrIncompleteReceipt = errors.New("receipt items are incomplete")
)

// receiptField is the multipart field carrying the receipt photo.
const receiptField = "image"

// ParseMonthParam reads ?month=YYYY-MM, falling back to the month of today
// when it is absent or invalid.
func ParseMonthParam(query url.Values, today core.Date) core.YearMonth {
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := core.ParseYearMonth(v); err == nil {
			return m
		}
	}
	return core.MonthOf(today)
}

// ParseKindParam reads ?kind=, falling back to def.
func ParseKindParam(query url.Values, def core.Kind) core.Kind {
	if k, err := core.ParseKind(query.Get("kind")); err == nil {
		return k
	}
	return def
}

// ParseTransactionForm builds the insert contract from the manual entry
// form. A missing date means today.
func ParseTransactionForm(form url.Values, owner string, today core.Date) (core.NewTransaction, error) {
	var errs []error

	kind, err := core.ParseKind(form.Get("kind"))
	if err != nil {
		errs = append(errs, err)
	}

	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		errs = append(errs, fmt.Errorf("amount: %w", err))
	}

	categoryID, err := parseID(form.Get("category_id"))
	if err != nil {
		errs = append(errs, core.ErrMissingCategory)
	}

	date := today
	if v := strings.TrimSpace(form.Get("date")); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		UserID:     owner,
		Kind:       kind,
		Amount:     amount,
		CategoryID: categoryID,
		Date:       date,
		Memo:       sanitizeInput(form.Get("memo")),
	}, nil
}

// ParseGoalForm builds a goal from the goal form. Deadline and starting
// amount are optional.
func ParseGoalForm(form url.Values, owner string) (core.NewGoal, error) {
	var errs []error

	target, err := core.ParseAmount(form.Get("target"))
	if err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}

	current := decimal.Zero
	if v := strings.TrimSpace(form.Get("current")); v != "" {
		if current, err = core.ParseAmount(v); err != nil {
			errs = append(errs, fmt.Errorf("current: %w", err))
		}
	}

	deadline, err := core.ParseDate(form.Get("deadline"))
	if err != nil {
		errs = append(errs, fmt.Errorf("deadline: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return core.NewGoal{}, err
	}
	return core.NewGoal{
		UserID:   owner,
		Name:     sanitizeInput(form.Get("name")),
		Target:   target,
		Current:  current,
		Deadline: deadline,
	}, nil
}

// ParseReceiptReviewForm reads the reviewed receipt back from the review
// partial. Items are parallel item_name/item_price/item_category fields;
// rows without a name are dropped and an empty price stays unknown.
func ParseReceiptReviewForm(form url.Values) (core.ReceiptExtraction, string, error) {
	names := form["item_name"]
	prices := form["item_price"]
	categories := form["item_category"]
	if len(prices) != len(names) || len(categories) != len(names) {
		return core.ReceiptExtraction{}, "", ErrIncompleteReceipt
	}

	out := core.ReceiptExtraction{
		StoreName: sanitizeInput(form.Get("store")),
		Date:      strings.TrimSpace(form.Get("date")),
		Items:     make([]core.ReceiptItem, 0, len(names)),
	}
	if v := strings.TrimSpace(form.Get("total")); v != "" {
		total, err := core.ParseAmount(v)
		if err != nil {
			return core.ReceiptExtraction{}, "", fmt.Errorf("total: %w", err)
		}
		out.TotalAmount = decimal.NewNullDecimal(total)
	}

	for i, name := range names {
		name = sanitizeInput(name)
		if name == "" {
			continue
		}
		item := core.ReceiptItem{Name: name, Category: sanitizeInput(categories[i])}
		if v := strings.TrimSpace(prices[i]); v != "" {
			price, err := core.ParseAmount(v)
			if err != nil {
				return core.ReceiptExtraction{}, "", fmt.Errorf("price of %q: %w", name, err)
			}
			item.Price = decimal.NewNullDecimal(price)
		}
		out.Items = append(out.Items, item)
	}

	return out, strings.TrimSpace(form.Get("image_url")), nil
}

// ReadReceiptUpload reads the receipt photo from a multipart request. The
// content type is sniffed when the part does not declare an image type.
func ReadReceiptUpload(r *http.Request, maxBytes int64) ([]byte, string, error) {
	file, header, err := r.FormFile(receiptField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", ErrMissingImage
		}
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	data, err := readLimited(file, maxBytes)
	if err != nil {
		return nil, "", err
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// readLimited reads at most maxBytes+1 bytes so an oversized upload is
// reported by the service instead of being silently truncated.
func readLimited(f multipart.File, maxBytes int64) ([]byte, error) {
	var src io.Reader = f
	if maxBytes > 0 {
		src = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
