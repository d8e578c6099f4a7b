// Package report aggregates ledger snapshots into summaries and monthly
// reports.
package report

import (
	"sort"
	"strings"

	"keuangan/internal/core"
)

// OwnerStats is the per-sender breakdown inside a Summary.
type OwnerStats struct {
	Count    int
	Income   core.Money
	Expenses core.Money // absolute value
}

// Net is income minus expenses.
func (o OwnerStats) Net() core.Money {
	return o.Income.Sub(o.Expenses)
}

type OwnerEntry struct {
	OwnerID string
	OwnerStats
}

// Summary aggregates a snapshot. Categories holds signed sums, so income and
// expense categories share one map.
type Summary struct {
	Count         int
	TotalIncome   core.Money
	TotalExpenses core.Money // absolute value
	Net           core.Money
	Categories    map[string]core.Money
	Owners        map[string]OwnerStats
}

// Summarize aggregates txs. Rows with a zero amount count toward Count only.
func Summarize(txs []core.Transaction) Summary {
	s := Summary{
		Count:      len(txs),
		Categories: make(map[string]core.Money),
		Owners:     make(map[string]OwnerStats),
	}
	for _, tx := range txs {
		cat := string(tx.Category)
		s.Categories[cat] = s.Categories[cat].Add(tx.Amount)

		o := s.Owners[tx.OwnerID]
		o.Count++
		switch tx.Amount.Sign() {
		case 1:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			o.Income = o.Income.Add(tx.Amount)
		case -1:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount.Abs())
			o.Expenses = o.Expenses.Add(tx.Amount.Abs())
		}
		s.Owners[tx.OwnerID] = o
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// CategoryRanking orders categories by absolute amount, largest first.
func (s Summary) CategoryRanking() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(s.Categories))
	for name, amt := range s.Categories {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sortByMagnitude(out)
	return out
}

// OwnerRanking orders owners by transaction count, most active first.
func (s Summary) OwnerRanking() []OwnerEntry {
	out := make([]OwnerEntry, 0, len(s.Owners))
	for id, st := range s.Owners {
		out = append(out, OwnerEntry{OwnerID: id, OwnerStats: st})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].OwnerID < out[j].OwnerID
	})
	return out
}

// Breakdown splits txs into income and expense category totals, each ranked
// largest first. Expense amounts are absolute.
func Breakdown(txs []core.Transaction) (income, expense []core.CategoryAmount) {
	in := map[string]core.Money{}
	out := map[string]core.Money{}
	for _, tx := range txs {
		cat := string(tx.Category)
		switch tx.Amount.Sign() {
		case 1:
			in[cat] = in[cat].Add(tx.Amount)
		case -1:
			out[cat] = out[cat].Add(tx.Amount.Abs())
		}
	}
	return ranked(in), ranked(out)
}

func ranked(m map[string]core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(m))
	for name, amt := range m {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sortByMagnitude(out)
	return out
}

func sortByMagnitude(list []core.CategoryAmount) {
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].Amount.Abs().Cmp(list[j].Amount.Abs()); c != 0 {
			return c > 0
		}
		return strings.Compare(list[i].Name, list[j].Name) < 0
	})
}

// Totals returns income and absolute expenses of txs.
func Totals(txs []core.Transaction) (income, expenses core.Money) {
	for _, tx := range txs {
		switch tx.Amount.Sign() {
		case 1:
			income = income.Add(tx.Amount)
		case -1:
			expenses = expenses.Add(tx.Amount.Abs())
		}
	}
	return income, expenses
}
