package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/ports"
)

const recentLimit = 5

// Overview is the dashboard for one month.
type Overview struct {
	Month   core.YearMonth
	Summary core.MonthlySummary
	Goals   []core.GoalProgress
	// Recent holds the month's latest transactions, newest first.
	Recent []core.Transaction
}

// Breakdown is the category view of one month and kind.
type Breakdown struct {
	Month  core.YearMonth
	Kind   core.Kind
	Totals []core.CategoryTotal
	Slices []core.PieSlice
	Total  decimal.Decimal
}

type DashboardService struct {
	transactions ports.TransactionReader
	goals        ports.GoalStore
	catalog      *CategoryCatalog
	logger       *log.Logger
}

func NewDashboardService(transactions ports.TransactionReader, goals ports.GoalStore, catalog *CategoryCatalog, logger *log.Logger) *DashboardService {
	return &DashboardService{
		transactions: transactions,
		goals:        goals,
		catalog:      catalog,
		logger:       logger.WithComponent(log.ComponentDashboard),
	}
}

// Overview loads the month's transactions and the active goals concurrently.
func (s *DashboardService) Overview(ctx context.Context, owner string, month core.YearMonth, today core.Date) (Overview, error) {
	var (
		txs   []core.Transaction
		goals []core.SavingsGoal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		first, last := month.Range()
		var err error
		txs, err = s.transactions.ListTransactions(gctx, owner, first, last)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = s.goals.ListGoals(gctx, owner, true)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	progress := make([]core.GoalProgress, 0, len(goals))
	for _, goal := range goals {
		progress = append(progress, core.ComputeGoalProgress(goal, today))
	}

	s.logger.DebugContext(ctx, "Dashboard overview built",
		log.FieldUserID, owner,
		log.FieldMonth, month.String(),
		"transactions", len(txs),
		"goals", len(goals))

	return Overview{
		Month:   month,
		Summary: core.SummarizeMonth(month, txs, goals),
		Goals:   progress,
		Recent:  recent(txs, recentLimit),
	}, nil
}

// Breakdown aggregates the month's transactions of kind by category and
// lays them out as pie slices.
func (s *DashboardService) Breakdown(ctx context.Context, owner string, month core.YearMonth, kind core.Kind) (Breakdown, error) {
	if err := kind.Validate(); err != nil {
		return Breakdown{}, err
	}

	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		first, last := month.Range()
		var err error
		txs, err = s.transactions.ListTransactions(gctx, owner, first, last)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.catalog.List(gctx, kind)
		return err
	})
	if err := g.Wait(); err != nil {
		return Breakdown{}, fmt.Errorf("load breakdown: %w", err)
	}

	totals := core.AggregateByCategory(txs, cats, kind)
	return Breakdown{
		Month:  month,
		Kind:   kind,
		Totals: totals,
		Slices: core.PieSlices(core.PieEntriesFromTotals(totals)),
		Total:  core.SumTotals(totals),
	}, nil
}

func recent(txs []core.Transaction, n int) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
