// Package query answers questions about the ledger, either from structured
// filters or by handing a financial context to the AI.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"keuangan/internal/ai"
	"keuangan/internal/clock"
	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/report"
)

const (
	// MaxRows caps the rows printed in a structured answer.
	MaxRows = 20

	NoMatchText       = "Tidak ada transaksi yang cocok dengan pertanyaan Anda."
	UnknownPeriodText = "Maaf, saya tidak memahami periode %q. Coba sebutkan misalnya \"hari ini\", \"minggu ini\", \"bulan lalu\" atau nama bulan."
	AdvisorErrText    = "Maaf, saya mengalami kesulitan menjawab pertanyaan keuangan saat ini. Silakan coba lagi dalam beberapa saat. 😊"
)

type Engine struct {
	answerer ai.Answerer
	logger   *log.Logger
}

func New(answerer ai.Answerer, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{answerer: answerer, logger: logger.WithComponent(log.ComponentService)}
}

// Filter applies filters to txs and returns the matches most recent first.
// asker is only consulted when UserScope is self.
// An unrecognized period matches nothing.
func Filter(txs []core.Transaction, f core.QueryFilters, now clock.Info, asker string) []core.Transaction {
	if _, ok := NormalizePeriod(f.Period); !ok {
		return nil
	}
	window, timed := ResolveWindow(f, now)
	self := f.UserScope == core.ScopeSelf && asker != ""

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if timed && !window.Contains(tx.Date) {
			continue
		}
		if f.Category != "" && string(tx.Category) != f.Category {
			continue
		}
		if self && tx.OwnerID != asker {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// AnswerStructured answers over all owners.
func (e *Engine) AnswerStructured(intent core.QueryIntent, txs []core.Transaction, now clock.Info) string {
	return e.AnswerStructuredFor("", intent, txs, now)
}

// AnswerStructuredFor answers on behalf of asker so a self scope can apply.
func (e *Engine) AnswerStructuredFor(asker string, intent core.QueryIntent, txs []core.Transaction, now clock.Info) string {
	f := intent.FiltersOrEmpty()
	if _, ok := NormalizePeriod(f.Period); !ok {
		return fmt.Sprintf(UnknownPeriodText, f.Period)
	}
	matches := Filter(txs, f, now, asker)
	if len(matches) == 0 {
		return NoMatchText
	}
	return formatMatches(matches, describe(f, now, asker))
}

func describe(f core.QueryFilters, now clock.Info, asker string) string {
	var parts []string
	if w, ok := ResolveWindow(f, now); ok {
		parts = append(parts, w.Label)
	}
	if f.Category != "" {
		parts = append(parts, f.Category)
	}
	if f.Limit > 0 {
		parts = append(parts, fmt.Sprintf("%d terakhir", f.Limit))
	}
	if f.UserScope == core.ScopeSelf && asker != "" {
		parts = append(parts, "milik Anda")
	}
	if len(parts) == 0 {
		return "Semua transaksi"
	}
	return strings.Join(parts, " · ")
}

func formatMatches(matches []core.Transaction, label string) string {
	income, expenses := report.Totals(matches)
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 *%s*\n\n", label)
	fmt.Fprintf(&b, "📝 Jumlah Transaksi: %d\n", len(matches))
	fmt.Fprintf(&b, "💰 Pendapatan: %s\n", income.Rupiah())
	fmt.Fprintf(&b, "💸 Pengeluaran: %s\n", expenses.Rupiah())
	fmt.Fprintf(&b, "📈 Bersih: %s\n", income.Sub(expenses).Rupiah())

	b.WriteString("\n")
	for i, tx := range matches {
		if i == MaxRows {
			fmt.Fprintf(&b, "... dan %d transaksi lainnya.\n", len(matches)-MaxRows)
			break
		}
		b.WriteString(FormatRow(tx))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRow renders one transaction the way /list and query answers show it.
func FormatRow(tx core.Transaction) string {
	desc := tx.Description
	if desc == "" {
		desc = "-"
	}
	return fmt.Sprintf("%d. %s - %s\n   %s\n   👤 %s · 📅 %s\n\n",
		tx.ID, tx.Amount.Rupiah(), tx.Category, desc, tx.OwnerID, tx.Date)
}

// AnswerOpen hands the question and a financial context to the AI.
func (e *Engine) AnswerOpen(ctx context.Context, question string, txs []core.Transaction, now clock.Info) string {
	if e.answerer == nil {
		return AdvisorErrText
	}
	answer, err := e.answerer.Answer(ctx, question, FinancialContext(txs, now), now)
	if err != nil || strings.TrimSpace(answer) == "" {
		e.logger.WarnContext(ctx, "Open question answer failed",
			log.NewFields().WithOperation(log.OpAnswer).WithError(err).ToSlice()...)
		return AdvisorErrText
	}
	return answer
}

// FinancialContext summarizes txs for the advisor prompt.
func FinancialContext(txs []core.Transaction, now clock.Info) string {
	if len(txs) == 0 {
		return "TIDAK ADA DATA TRANSAKSI\nBelum ada transaksi yang tercatat."
	}
	s := report.Summarize(txs)
	_, thisMonth := report.Totals(report.InMonth(txs, now.Month, now.Year))
	pm, py := report.PreviousMonth(now.Month, now.Year)
	_, lastMonth := report.Totals(report.InMonth(txs, pm, py))
	income, expense := report.Breakdown(txs)

	var b strings.Builder
	b.WriteString("📊 STATISTIK UMUM:\n")
	fmt.Fprintf(&b, "• Total Transaksi: %d\n", s.Count)
	fmt.Fprintf(&b, "• Total Pendapatan: %s\n", s.TotalIncome.Rupiah())
	fmt.Fprintf(&b, "• Total Pengeluaran: %s\n", s.TotalExpenses.Rupiah())
	fmt.Fprintf(&b, "• Saldo Bersih: %s\n", s.Net.Rupiah())
	b.WriteString("\n📈 ANALISIS BULANAN:\n")
	fmt.Fprintf(&b, "• Pengeluaran Bulan Ini (%s %d): %s\n", now.MonthName, now.Year, thisMonth.Rupiah())
	fmt.Fprintf(&b, "• Pengeluaran Bulan Lalu (%s %d): %s\n", clock.MonthName(pm), py, lastMonth.Rupiah())
	b.WriteString("\n💰 KATEGORI PENDAPATAN:\n")
	writeRanking(&b, income)
	b.WriteString("\n💸 KATEGORI PENGELUARAN:\n")
	writeRanking(&b, expense)
	return strings.TrimRight(b.String(), "\n")
}

func writeRanking(b *strings.Builder, list []core.CategoryAmount) {
	if len(list) == 0 {
		b.WriteString("• (belum ada)\n")
		return
	}
	for _, c := range list {
		fmt.Fprintf(b, "• %s: %s\n", c.Name, c.Amount.Rupiah())
	}
}
