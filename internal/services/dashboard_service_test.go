package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/storage/memory"
)

func seedDashboard(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewDefault()
	ctx := context.Background()
	inputs := []core.NewTransaction{
		{UserID: "u1", Kind: core.KindExpense, Amount: decimal.NewFromInt(1000), CategoryID: 1, Date: core.NewDate(2024, 1, 3)},
		{UserID: "u1", Kind: core.KindExpense, Amount: decimal.NewFromInt(500), CategoryID: 1, Date: core.NewDate(2024, 1, 20)},
		{UserID: "u1", Kind: core.KindIncome, Amount: decimal.NewFromInt(3000), CategoryID: 9, Date: core.NewDate(2024, 1, 25)},
		{UserID: "u1", Kind: core.KindExpense, Amount: decimal.NewFromInt(700), CategoryID: 3, Date: core.NewDate(2024, 2, 1)},
		{UserID: "u2", Kind: core.KindExpense, Amount: decimal.NewFromInt(9999), CategoryID: 1, Date: core.NewDate(2024, 1, 5)},
	}
	for _, in := range inputs {
		if _, err := store.CreateTransaction(ctx, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestDashboardOverview(t *testing.T) {
	store := seedDashboard(t)
	ctx := context.Background()
	if _, err := store.CreateGoal(ctx, core.NewGoal{
		UserID: "u1", Name: "Trip",
		Target: decimal.NewFromInt(100000), Current: decimal.NewFromInt(25000),
		Deadline: core.NewDate(2024, 5, 15),
	}); err != nil {
		t.Fatalf("goal: %v", err)
	}

	svc := NewDashboardService(store, store, NewCategoryCatalog(store, log.Discard()), log.Discard())
	jan := core.YearMonth{Year: 2024, Month: time.January}

	ov, err := svc.Overview(ctx, "u1", jan, core.NewDate(2024, 1, 15))
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	s := ov.Summary
	if !s.TotalIncome.Equal(decimal.NewFromInt(3000)) || !s.TotalExpense.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected totals %+v", s)
	}
	if !s.TotalGoalsSavings.Equal(decimal.NewFromInt(25000)) || !s.RemainingBudget.Equal(decimal.NewFromInt(-23500)) {
		t.Fatalf("unexpected goal figures %+v", s)
	}
	if len(ov.Goals) != 1 || ov.Goals[0].Percentage != 25 || !ov.Goals[0].MonthlyRequired.Equal(decimal.NewFromInt(18750)) {
		t.Fatalf("unexpected goal progress %+v", ov.Goals)
	}
	if len(ov.Recent) != 3 || ov.Recent[0].Date.String() != "2024-01-25" {
		t.Fatalf("unexpected recent list %+v", ov.Recent)
	}
}

func TestDashboardOverviewPropagatesErrors(t *testing.T) {
	store := seedDashboard(t)
	svc := NewDashboardService(store, failingGoals{store}, NewCategoryCatalog(store, log.Discard()), log.Discard())

	_, err := svc.Overview(context.Background(), "u1", core.YearMonth{Year: 2024, Month: time.January}, core.NewDate(2024, 1, 1))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected goal store error, got %v", err)
	}
}

func TestDashboardBreakdown(t *testing.T) {
	store := seedDashboard(t)
	svc := NewDashboardService(store, store, NewCategoryCatalog(store, log.Discard()), log.Discard())
	ctx := context.Background()
	jan := core.YearMonth{Year: 2024, Month: time.January}

	b, err := svc.Breakdown(ctx, "u1", jan, core.KindExpense)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(b.Totals) != 1 || b.Totals[0].Name() != "Food" || !b.Total.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected totals %+v", b.Totals)
	}
	if len(b.Slices) != 1 || !b.Slices[0].FullCircle {
		t.Fatalf("expected a single full-circle slice, got %+v", b.Slices)
	}

	empty, err := svc.Breakdown(ctx, "u1", core.YearMonth{Year: 2023, Month: time.June}, core.KindIncome)
	if err != nil || len(empty.Totals) != 0 || len(empty.Slices) != 0 || !empty.Total.IsZero() {
		t.Fatalf("expected empty breakdown, got %+v %v", empty, err)
	}

	if _, err := svc.Breakdown(ctx, "u1", jan, core.Kind("transfer")); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
