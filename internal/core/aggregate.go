package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Display defaults for categories that carry no icon or colour.
const (
	DefaultCategoryIcon  = "📁"
	DefaultCategoryColor = "#6B7280"
)

// CategoryTotal is the summed amount of one category's transactions.
type CategoryTotal struct {
	Category Category
	Amount   decimal.Decimal
}

// Name returns the category display name.
func (c CategoryTotal) Name() string { return c.Category.Name }

// AggregateByCategory sums the transactions of the given kind per category
// and returns the totals in descending amount order.
//
// Transactions whose category is not in cats are dropped from the result.
// Ties keep the categories' display order, then their name.
func AggregateByCategory(txs []Transaction, cats []Category, kind Kind) []CategoryTotal {
	byID := make(map[int64]Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	sums := make(map[int64]decimal.Decimal)
	for _, t := range txs {
		if t.Kind != kind {
			continue
		}
		if _, ok := byID[t.CategoryID]; !ok {
			continue
		}
		sums[t.CategoryID] = sums[t.CategoryID].Add(t.Amount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for id, amount := range sums {
		c := byID[id]
		if c.Icon == "" {
			c.Icon = DefaultCategoryIcon
		}
		if c.Color == "" {
			c.Color = DefaultCategoryColor
		}
		out = append(out, CategoryTotal{Category: c, Amount: amount})
	}

	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		if out[i].Category.DisplayOrder != out[j].Category.DisplayOrder {
			return out[i].Category.DisplayOrder < out[j].Category.DisplayOrder
		}
		return out[i].Category.Name < out[j].Category.Name
	})
	return out
}

// SumTotals adds up the amounts of an aggregate.
func SumTotals(totals []CategoryTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Amount)
	}
	return sum
}
