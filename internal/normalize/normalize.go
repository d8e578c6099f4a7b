// Package normalize turns AI transaction candidates into ledger-ready
// transactions. It is the only place untyped model output becomes a
// core.Transaction.
package normalize

import (
	"strings"

	"keuangan/internal/core"
)

const (
	// DefaultDescription is used for text messages without a description.
	DefaultDescription = "Tanpa deskripsi"
	// ReceiptDescription is used for receipt images without a description.
	ReceiptDescription = "Dari struk"
)

// Outcome tells callers which reply fits an empty or non-empty result.
type Outcome int

const (
	OK Outcome = iota
	// NoCandidates means the AI found nothing to record.
	NoCandidates
	// AllInvalid means the AI found candidates but none survived validation.
	AllInvalid
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NoCandidates:
		return "no_candidates"
	case AllInvalid:
		return "all_invalid"
	}
	return "unknown"
}

// Result is the normalizer output.
type Result struct {
	Transactions []core.Transaction
	Candidates   int
	Dropped      int
	// Recategorized counts candidates whose category fell into core.CategoryOther.
	Recategorized int
}

// Outcome classifies the result.
func (r Result) Outcome() Outcome {
	switch {
	case r.Candidates == 0:
		return NoCandidates
	case len(r.Transactions) == 0:
		return AllInvalid
	default:
		return OK
	}
}

// Options tunes defaults per message kind.
type Options struct {
	DefaultDescription string
	OwnerID            string
}

// Normalize validates and coerces raw candidates. Candidates with a zero or
// non-numeric amount are dropped; a missing or unparsable date becomes
// defaultDate. Input order is preserved.
func Normalize(raw []core.RawTransaction, defaultDate core.Date) Result {
	return NormalizeWith(raw, defaultDate, Options{})
}

// NormalizeWith is Normalize with explicit options.
func NormalizeWith(raw []core.RawTransaction, defaultDate core.Date, opts Options) Result {
	if opts.DefaultDescription == "" {
		opts.DefaultDescription = DefaultDescription
	}
	res := Result{
		Transactions: make([]core.Transaction, 0, len(raw)),
		Candidates:   len(raw),
	}
	for _, c := range raw {
		tx, recategorized, ok := normalizeOne(c, defaultDate, opts)
		if !ok {
			res.Dropped++
			continue
		}
		if recategorized {
			res.Recategorized++
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

func normalizeOne(c core.RawTransaction, defaultDate core.Date, opts Options) (core.Transaction, bool, bool) {
	if c.Amount == nil {
		return core.Transaction{}, false, false
	}
	amount, err := c.Amount.Money()
	if err != nil {
		return core.Transaction{}, false, false
	}

	date := defaultDate
	if c.Date != nil {
		if d, err := core.ParseDate(*c.Date); err == nil {
			date = d
		}
	}

	var rawCategory string
	if c.Category != nil {
		rawCategory = *c.Category
	}
	category, known := core.ParseCategory(rawCategory)

	description := opts.DefaultDescription
	if c.Description != nil && strings.TrimSpace(*c.Description) != "" {
		description = strings.TrimSpace(*c.Description)
	}

	tx := core.Transaction{
		Date:        date,
		Amount:      amount,
		Category:    category,
		Description: description,
		OwnerID:     opts.OwnerID,
	}
	if tx.Validate() != nil {
		return core.Transaction{}, false, false
	}
	return tx, !known, true
}
