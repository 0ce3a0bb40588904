package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GoalProgress is the derived, never stored, view of a savings goal.
type GoalProgress struct {
	Goal            SavingsGoal
	Percentage      float64 // 0..100
	MonthlyRequired decimal.Decimal
	MonthsRemaining int
	DaysRemaining   int
	Achieved        bool
}

// Remaining is the amount still missing to reach the target, never negative.
func (p GoalProgress) Remaining() decimal.Decimal {
	r := p.Goal.Target.Sub(p.Goal.Current)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// ComputeGoalProgress derives percentage and required monthly saving for g as
// of today.
//
// The percentage is current/target clamped to [0, 100] and is 0 for a zero
// target. MonthlyRequired spreads the missing amount over the whole months
// left until the deadline; it is 0 without a deadline or with no whole month
// left.
func ComputeGoalProgress(g SavingsGoal, today Date) GoalProgress {
	p := GoalProgress{
		Goal:            g,
		MonthlyRequired: decimal.Zero,
		Achieved:        g.Target.IsPositive() && g.Current.GreaterThanOrEqual(g.Target),
	}

	if g.Target.IsPositive() && g.Current.IsPositive() {
		pct := g.Current.Mul(hundred).Div(g.Target)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		p.Percentage = pct.Round(2).InexactFloat64()
	}

	if g.Deadline.IsZero() {
		return p
	}

	p.MonthsRemaining = WholeMonthsBetween(today, g.Deadline)
	p.DaysRemaining = daysBetween(today, g.Deadline)

	if p.MonthsRemaining > 0 {
		required := g.Target.Sub(g.Current).DivRound(decimal.NewFromInt(int64(p.MonthsRemaining)), 2)
		if required.IsPositive() {
			p.MonthlyRequired = required
		}
	}
	return p
}

// WholeMonthsBetween counts the complete calendar months from from to to,
// floored at 0. A month counts once the day of month is reached again, so
// 2024-01-15 to 2024-05-15 is 4 and 2024-01-15 to 2024-05-14 is 3.
func WholeMonthsBetween(from, to Date) int {
	if !to.After(from.Time) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + (to.Month() - from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func daysBetween(from, to Date) int {
	a := time.Date(from.Year(), time.Month(from.Month()), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), time.Month(to.Month()), to.Day(), 0, 0, 0, 0, time.UTC)
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
