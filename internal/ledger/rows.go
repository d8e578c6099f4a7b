package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keuangan/internal/core"
)

// TimestampLayout is how RecordedAt is written to the ledger.
const TimestampLayout = "2006-01-02 15:04:05"

// Column positions in a ledger row.
const (
	ColDate = iota
	ColAmount
	ColCategory
	ColDescription
	ColOwner
	ColTimestamp
	ColKey
	NumColumns
)

// Header is the first row of every ledger. Key was added after the original
// six columns; rows without it are legacy rows.
var Header = []string{"Date", "Amount", "Category", "Description", "OwnerId", "Timestamp", "Key"}

// HeaderRow returns Header as a row of cells.
func HeaderRow() []any {
	row := make([]any, len(Header))
	for i, h := range Header {
		row[i] = h
	}
	return row
}

// IsHeader reports whether row looks like the header row.
func IsHeader(row []any) bool {
	return len(row) > 0 && strings.EqualFold(CellString(row[0]), Header[0])
}

// InBounds reports whether id addresses a data row in a table of rowCount
// rows, header included.
func InBounds(id, rowCount int) bool {
	return id >= 1 && id <= rowCount-1
}

// Stamp validates txs and assigns Key and RecordedAt where they are empty.
// Keys are UUIDv7 so they sort in append order.
func Stamp(txs []core.Transaction, now time.Time) ([]core.Transaction, error) {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if tx.Key == "" {
			k, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("generate key: %w", err)
			}
			tx.Key = k.String()
		}
		if tx.RecordedAt.IsZero() {
			tx.RecordedAt = now
		}
		out[i] = tx
	}
	return out, nil
}

// EncodeRow converts tx into ledger cells. The amount is a number cell.
func EncodeRow(tx core.Transaction) []any {
	recorded := ""
	if !tx.RecordedAt.IsZero() {
		recorded = tx.RecordedAt.Format(TimestampLayout)
	}
	return []any{
		tx.Date.String(),
		tx.Amount.Float64(),
		string(tx.Category),
		tx.Description,
		tx.OwnerID,
		recorded,
		tx.Key,
	}
}

// EncodeStrings is EncodeRow for text-only backends.
func EncodeStrings(tx core.Transaction) []string {
	row := EncodeRow(tx)
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = CellString(c)
	}
	out[ColAmount] = tx.Amount.String()
	return out
}

// DecodeRow converts ledger cells into a Transaction with the given ID.
// Malformed numbers become zero and malformed text becomes empty; a single
// bad row never fails the read.
func DecodeRow(id int, row []any) core.Transaction {
	tx := core.Transaction{
		ID:          id,
		Category:    core.Category(cellAt(row, ColCategory)),
		Description: cellAt(row, ColDescription),
		OwnerID:     cellAt(row, ColOwner),
		Key:         cellAt(row, ColKey),
	}
	if d, err := core.ParseDate(cellAt(row, ColDate)); err == nil {
		tx.Date = d
	}
	if ColAmount < len(row) {
		tx.Amount = decodeAmount(row[ColAmount])
	}
	if ts := cellAt(row, ColTimestamp); ts != "" {
		if t, err := time.Parse(TimestampLayout, ts); err == nil {
			tx.RecordedAt = t
		} else if t, err := time.Parse(time.RFC3339, ts); err == nil {
			tx.RecordedAt = t
		}
	}
	return tx
}

// DecodeStrings is DecodeRow for text-only backends.
func DecodeStrings(id int, row []string) core.Transaction {
	cells := make([]any, len(row))
	for i, c := range row {
		cells[i] = c
	}
	return DecodeRow(id, cells)
}

// DecodeRows decodes a full table, skipping the header when present.
func DecodeRows(values [][]any) []core.Transaction {
	if len(values) > 0 && IsHeader(values[0]) {
		values = values[1:]
	}
	out := make([]core.Transaction, 0, len(values))
	for i, row := range values {
		out = append(out, DecodeRow(i+1, row))
	}
	return out
}

func decodeAmount(v any) core.Money {
	switch n := v.(type) {
	case float64:
		return core.MoneyFromFloat(n)
	case int:
		return core.MoneyFromInt(int64(n))
	case int64:
		return core.MoneyFromInt(n)
	}
	s := strings.TrimSpace(CellString(v))
	if s == "" {
		return core.Money{}
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return core.NewMoney(d)
	}
	if m, err := core.ParseAmount(s); err == nil {
		return m
	}
	return core.Money{}
}

// CellString renders a cell value as trimmed text.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

func cellAt(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return CellString(row[i])
}
