package core

import (
	"testing"
	"time"
)

func TestSummarizeMonthExample(t *testing.T) {
	m := YearMonth{Year: 2024, Month: time.March}
	txs := []Transaction{
		{Kind: KindExpense, Amount: amt(1000), CategoryID: 1},
		{Kind: KindExpense, Amount: amt(500), CategoryID: 1},
		{Kind: KindIncome, Amount: amt(3000), CategoryID: 10},
	}
	s := SummarizeMonth(m, txs, nil)
	if !s.TotalIncome.Equal(amt(3000)) {
		t.Fatalf("income: got %s", s.TotalIncome)
	}
	if !s.TotalExpense.Equal(amt(1500)) {
		t.Fatalf("expense: got %s", s.TotalExpense)
	}
	if !s.TotalGoalsSavings.IsZero() {
		t.Fatalf("goals: got %s", s.TotalGoalsSavings)
	}
	if !s.RemainingBudget.Equal(amt(1500)) {
		t.Fatalf("remaining: got %s", s.RemainingBudget)
	}
}

func TestSummarizeMonthSubtractsActiveGoalBalances(t *testing.T) {
	txs := []Transaction{
		{Kind: KindIncome, Amount: amt(300000)},
		{Kind: KindExpense, Amount: amt(120000)},
	}
	goals := []SavingsGoal{
		{Current: amt(50000), Active: true},
		{Current: amt(30000), Active: true},
		{Current: amt(999999), Active: false},
	}
	s := SummarizeMonth(YearMonth{Year: 2024, Month: time.April}, txs, goals)
	if !s.TotalGoalsSavings.Equal(amt(80000)) {
		t.Fatalf("goals: got %s", s.TotalGoalsSavings)
	}
	if !s.RemainingBudget.Equal(amt(100000)) {
		t.Fatalf("remaining: got %s", s.RemainingBudget)
	}
}

func TestSummarizeMonthCanGoNegative(t *testing.T) {
	s := SummarizeMonth(YearMonth{Year: 2024, Month: time.May}, []Transaction{
		{Kind: KindExpense, Amount: amt(800)},
	}, []SavingsGoal{{Current: amt(200), Active: true}})
	if !s.RemainingBudget.Equal(amt(-1000)) {
		t.Fatalf("expected -1000, got %s", s.RemainingBudget)
	}
}

func TestYearMonthRange(t *testing.T) {
	m, err := ParseYearMonth("2024-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, last := m.Range()
	if first.String() != "2024-02-01" || last.String() != "2024-02-29" {
		t.Fatalf("unexpected range %s..%s", first, last)
	}
	if m.Prev().String() != "2024-01" || m.Next().String() != "2024-03" {
		t.Fatalf("unexpected neighbours %s %s", m.Prev(), m.Next())
	}
	dec := YearMonth{Year: 2024, Month: time.December}
	if dec.Next().String() != "2025-01" {
		t.Fatalf("expected 2025-01, got %s", dec.Next())
	}
	if !m.Contains(NewDate(2024, 2, 29)) || m.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("Contains gave wrong answer")
	}
	if _, err := ParseYearMonth("2024-13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
}
