package report

import (
	"fmt"
	"strconv"
	"strings"

	"keuangan/internal/clock"
	"keuangan/internal/core"
)

// Direction labels for the month-over-month expense comparison.
const (
	DirectionUp   = "naik"
	DirectionDown = "turun"
	DirectionFlat = "tetap"
)

const topExpenseCategories = 5

// ResolvePeriod maps /report arguments onto a month and year.
//
//	[]             -> current month and year
//	["7"]          -> July, current year
//	["2023"]       -> current month, 2023
//	["7", "2023"]  -> July 2023
//	["2023-07"]    -> July 2023
//	["maret"]      -> March, current year
//	["mar", "2023"] -> March 2023
//
// Anything unparsable falls back to the current value for that field.
func ResolvePeriod(args []string, now clock.Info) (month, year int) {
	month, year = now.Month, now.Year
	switch len(args) {
	case 0:
		return month, year
	case 1:
		arg := strings.TrimSpace(args[0])
		if strings.Contains(arg, "-") {
			parts := strings.SplitN(arg, "-", 2)
			y, yok := parseYear(parts[0])
			m, mok := parseMonth(parts[1])
			if yok && mok {
				return m, y
			}
			return month, year
		}
		if m, ok := clock.ParseMonthName(arg); ok {
			return m, year
		}
		n, err := strconv.Atoi(arg)
		switch {
		case err != nil || n <= 0:
		case n > 12:
			if y, ok := parseYear(arg); ok {
				year = y
			}
		default:
			month = n
		}
		return month, year
	default:
		if m, ok := parseMonth(args[0]); ok {
			month = m
		}
		if y, ok := parseYear(args[1]); ok {
			year = y
		}
		return month, year
	}
}

func parseMonth(s string) (int, bool) {
	if m, ok := clock.ParseMonthName(s); ok {
		return m, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}

func parseYear(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1900 || n > 9999 {
		return 0, false
	}
	return n, true
}

// PreviousMonth returns the calendar month before (month, year).
func PreviousMonth(month, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}

// InMonth keeps the rows dated inside the given calendar month.
func InMonth(txs []core.Transaction, month, year int) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if !tx.Date.IsEmpty() && tx.Date.Month() == month && tx.Date.Year() == year {
			out = append(out, tx)
		}
	}
	return out
}

// Overview computes the compact month summary.
func Overview(txs []core.Transaction, month, year int) core.MonthOverview {
	rows := InMonth(txs, month, year)
	income, expenses := Totals(rows)
	_, byCat := Breakdown(rows)
	return core.MonthOverview{
		Year:       year,
		Month:      month,
		Count:      len(rows),
		Income:     income,
		Expenses:   expenses,
		ByCategory: byCat,
	}
}

// Comparison is a month's expenses against the preceding month's.
type Comparison struct {
	Current   core.Money
	Previous  core.Money
	Delta     core.Money // absolute difference
	Direction string
}

// CompareExpenses compares the month's expenses with the previous month.
func CompareExpenses(txs []core.Transaction, month, year int) Comparison {
	pm, py := PreviousMonth(month, year)
	_, cur := Totals(InMonth(txs, month, year))
	_, prev := Totals(InMonth(txs, pm, py))
	c := Comparison{Current: cur, Previous: prev, Delta: cur.Sub(prev).Abs()}
	switch cur.Cmp(prev) {
	case 1:
		c.Direction = DirectionUp
	case -1:
		c.Direction = DirectionDown
	default:
		c.Direction = DirectionFlat
	}
	return c
}

func periodLabel(month, year int) string {
	return fmt.Sprintf("%s %d", clock.MonthName(month), year)
}

// MonthlyReport renders the /report reply for month and year.
func MonthlyReport(txs []core.Transaction, month, year int) string {
	ov := Overview(txs, month, year)
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Laporan Bulanan %s*\n\n", periodLabel(month, year))

	if ov.Count == 0 {
		b.WriteString("Tidak ada transaksi tercatat pada bulan ini.\n")
	} else {
		fmt.Fprintf(&b, "💰 Pendapatan: %s\n", ov.Income.Rupiah())
		fmt.Fprintf(&b, "💸 Pengeluaran: %s\n", ov.Expenses.Rupiah())
		fmt.Fprintf(&b, "📈 Bersih: %s\n", ov.Net().Rupiah())
		fmt.Fprintf(&b, "📝 Jumlah Transaksi: %d\n", ov.Count)

		if len(ov.ByCategory) > 0 {
			b.WriteString("\n*Pengeluaran Teratas:*\n")
			for i, c := range ov.ByCategory {
				if i == topExpenseCategories {
					break
				}
				fmt.Fprintf(&b, "%d. %s: %s\n", i+1, c.Name, c.Amount.Rupiah())
			}
		}

		owners := Summarize(InMonth(txs, month, year)).OwnerRanking()
		b.WriteString("\n*Per Pengguna:*\n")
		for _, o := range owners {
			fmt.Fprintf(&b, "👤 %s: %d transaksi, pendapatan %s, pengeluaran %s\n",
				ownerLabel(o.OwnerID), o.Count, o.Income.Rupiah(), o.Expenses.Rupiah())
		}
	}

	pm, py := PreviousMonth(month, year)
	cmp := CompareExpenses(txs, month, year)
	b.WriteString("\n")
	switch cmp.Direction {
	case DirectionFlat:
		fmt.Fprintf(&b, "➖ Dibanding %s: pengeluaran %s (%s)", periodLabel(pm, py), cmp.Direction, cmp.Current.Rupiah())
	default:
		icon := "📈"
		if cmp.Direction == DirectionDown {
			icon = "📉"
		}
		fmt.Fprintf(&b, "%s Dibanding %s: pengeluaran %s %s (%s → %s)",
			icon, periodLabel(pm, py), cmp.Direction, cmp.Delta.Rupiah(), cmp.Previous.Rupiah(), cmp.Current.Rupiah())
	}
	return b.String()
}

// MonthlyReportFor resolves args against now and renders the report.
func MonthlyReportFor(txs []core.Transaction, args []string, now clock.Info) string {
	month, year := ResolvePeriod(args, now)
	return MonthlyReport(txs, month, year)
}

func ownerLabel(id string) string {
	if id == "" {
		return "(tanpa pengguna)"
	}
	return id
}

// FormatSummary renders the /total reply.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("📊 *Ringkasan Keuangan (Semua Pengguna)*\n\n")
	fmt.Fprintf(&b, "💰 Total Pendapatan: %s\n", s.TotalIncome.Rupiah())
	fmt.Fprintf(&b, "💸 Total Pengeluaran: %s\n", s.TotalExpenses.Neg().Rupiah())
	fmt.Fprintf(&b, "📈 Jumlah Bersih: %s\n", s.Net.Rupiah())
	fmt.Fprintf(&b, "📝 Total Transaksi: %d\n", s.Count)

	if cats := s.CategoryRanking(); len(cats) > 0 {
		b.WriteString("\n*Kategori:*\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "• %s: %s\n", c.Name, c.Amount.Rupiah())
		}
	}
	if owners := s.OwnerRanking(); len(owners) > 0 {
		b.WriteString("\n*Per Pengguna:*\n")
		for _, o := range owners {
			fmt.Fprintf(&b, "👤 Pengguna %s:\n", ownerLabel(o.OwnerID))
			fmt.Fprintf(&b, "   Transaksi: %d\n", o.Count)
			fmt.Fprintf(&b, "   Pendapatan: %s\n", o.Income.Rupiah())
			fmt.Fprintf(&b, "   Pengeluaran: %s\n", o.Expenses.Neg().Rupiah())
			fmt.Fprintf(&b, "   Bersih: %s\n", o.Net().Rupiah())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
