package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: time.Month(d.Month())}
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First is the first day of the month.
func (m YearMonth) First() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// Last is the last day of the month.
func (m YearMonth) Last() Date {
	return Date{Time: m.First().AddDate(0, 1, -1)}
}

// Range returns the inclusive [first, last] day bounds of the month.
func (m YearMonth) Range() (Date, Date) {
	return m.First(), m.Last()
}

func (m YearMonth) Prev() YearMonth {
	return MonthOf(Date{Time: m.First().AddDate(0, -1, 0)})
}

func (m YearMonth) Next() YearMonth {
	return MonthOf(Date{Time: m.First().AddDate(0, 1, 0)})
}

// Contains reports whether d falls inside the month.
func (m YearMonth) Contains(d Date) bool {
	return d.Year() == m.Year && time.Month(d.Month()) == m.Month
}

// MonthlySummary is the dashboard headline for one month.
type MonthlySummary struct {
	Month             YearMonth
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	TotalGoalsSavings decimal.Decimal
	RemainingBudget   decimal.Decimal
}

// SummarizeMonth totals the month's transactions and the active goals.
//
// TotalGoalsSavings is the sum of each active goal's current amount, i.e. the
// savings accumulated so far rather than this month's contribution, and it is
// subtracted from the month's income together with the expenses:
//
//	RemainingBudget = TotalIncome - (TotalExpense + TotalGoalsSavings)
//
// Transactions are expected to be pre-filtered to the month; inactive goals
// are ignored.
func SummarizeMonth(month YearMonth, txs []Transaction, goals []SavingsGoal) MonthlySummary {
	s := MonthlySummary{
		Month:             month,
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		TotalGoalsSavings: decimal.Zero,
	}
	for _, t := range txs {
		switch t.Kind {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case KindExpense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	for _, g := range goals {
		if !g.Active {
			continue
		}
		s.TotalGoalsSavings = s.TotalGoalsSavings.Add(g.Current)
	}
	s.RemainingBudget = s.TotalIncome.Sub(s.TotalExpense.Add(s.TotalGoalsSavings))
	return s
}
