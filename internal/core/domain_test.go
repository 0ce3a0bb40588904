package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("got %q", d.String())
	}

	empty, err := ParseDate("  ")
	if err != nil || !empty.IsZero() {
		t.Fatalf("blank input should give zero date, got %v %v", empty, err)
	}

	if _, err := ParseDate("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Expense "); err != nil || k != KindExpense {
		t.Fatalf("got %q %v", k, err)
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		UserID:     "u1",
		Kind:       KindExpense,
		Amount:     decimal.NewFromInt(1000),
		CategoryID: 1,
		Date:       NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*NewTransaction)
		want   error
	}{
		{"no owner", func(n *NewTransaction) { n.UserID = " " }, ErrMissingOwner},
		{"bad kind", func(n *NewTransaction) { n.Kind = "gift" }, ErrInvalidKind},
		{"negative amount", func(n *NewTransaction) { n.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"no category", func(n *NewTransaction) { n.CategoryID = 0 }, ErrMissingCategory},
		{"long memo", func(n *NewTransaction) { n.Memo = strings.Repeat("x", 501) }, ErrMemoTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := good
			tc.mutate(&n)
			if err := n.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	noDate := good
	noDate.Date = Date{}
	if err := noDate.Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestNewTransactionCheckCategory(t *testing.T) {
	n := NewTransaction{Kind: KindExpense, CategoryID: 3}
	if err := n.CheckCategory(Category{ID: 3, Kind: KindExpense}); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := n.CheckCategory(Category{ID: 3, Kind: KindIncome}); !errors.Is(err, ErrCategoryKindMismatch) {
		t.Fatalf("expected kind mismatch, got %v", err)
	}
	if err := n.CheckCategory(Category{ID: 4, Kind: KindExpense}); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
}

func TestNewGoalValidate(t *testing.T) {
	good := NewGoal{UserID: "u1", Name: "Trip", Target: decimal.NewFromInt(100000)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewGoal{
		{UserID: "", Name: "Trip", Target: decimal.NewFromInt(1)},
		{UserID: "u1", Name: "  ", Target: decimal.NewFromInt(1)},
		{UserID: "u1", Name: "Trip", Target: decimal.Zero},
		{UserID: "u1", Name: "Trip", Target: decimal.NewFromInt(1), Current: decimal.NewFromInt(-5)},
	}
	for i, g := range bads {
		if err := g.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
