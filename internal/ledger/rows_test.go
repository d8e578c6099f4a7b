package ledger

import (
	"errors"
	"testing"
	"time"

	"keuangan/internal/core"
)

func TestInBounds(t *testing.T) {
	tests := []struct {
		id, rows int
		want     bool
	}{
		{0, 5, false},
		{-3, 5, false},
		{1, 5, true},
		{4, 5, true},
		{5, 5, false},
		{1, 1, false},
	}
	for _, tt := range tests {
		if got := InBounds(tt.id, tt.rows); got != tt.want {
			t.Errorf("InBounds(%d, %d) = %v, want %v", tt.id, tt.rows, got, tt.want)
		}
	}
}

func TestStamp(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	txs := []core.Transaction{
		{Date: core.NewDate(2024, 6, 15), Amount: core.MoneyFromInt(-25000), Category: core.CategoryFood},
		{Date: core.NewDate(2024, 6, 15), Amount: core.MoneyFromInt(5000), Category: core.CategoryCashback, Key: "fixed"},
	}
	out, err := Stamp(txs, now)
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if out[0].Key == "" || out[1].Key != "fixed" {
		t.Fatalf("unexpected keys %q %q", out[0].Key, out[1].Key)
	}
	if !out[0].RecordedAt.Equal(now) {
		t.Fatalf("recorded at not set")
	}
	if txs[0].Key != "" {
		t.Fatalf("input slice must not be mutated")
	}

	_, err = Stamp([]core.Transaction{{Date: core.NewDate(2024, 6, 15), Category: core.CategoryFood}}, now)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestEncodeDecodeRow(t *testing.T) {
	tx := core.Transaction{
		Key:         "0190-abc",
		Date:        core.NewDate(2024, 6, 15),
		Amount:      core.MoneyFromInt(-25000),
		Category:    core.CategoryFood,
		Description: "makan siang",
		OwnerID:     "628123",
		RecordedAt:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	got := DecodeRow(3, EncodeRow(tx))
	tx.ID = 3
	if got.ID != 3 || got.Key != tx.Key || got.Date != tx.Date || !got.Amount.Equal(tx.Amount) ||
		got.Category != tx.Category || got.Description != tx.Description || got.OwnerID != tx.OwnerID ||
		!got.RecordedAt.Equal(tx.RecordedAt) {
		t.Fatalf("decoded %+v, want %+v", got, tx)
	}

	strs := EncodeStrings(tx)
	if strs[ColAmount] != "-25000" {
		t.Fatalf("amount cell %q", strs[ColAmount])
	}
	if back := DecodeStrings(1, strs); !back.Amount.Equal(tx.Amount) {
		t.Fatalf("string round trip lost amount: %s", back.Amount)
	}
}

func TestDecodeRowCoercesMalformedCells(t *testing.T) {
	got := DecodeRow(1, []any{"kemarin", "banyak", nil})
	if !got.Date.IsEmpty() || !got.Amount.IsZero() || got.Category != "" || got.Description != "" || got.Key != "" {
		t.Fatalf("expected zero values, got %+v", got)
	}

	got = DecodeRow(2, []any{"15/06/2024", "Rp 50.000", "Gaji"})
	if got.Date != core.NewDate(2024, 6, 15) || !got.Amount.Equal(core.MoneyFromInt(50000)) {
		t.Fatalf("lenient decode failed: %+v", got)
	}
}

func TestDecodeRowsSkipsHeader(t *testing.T) {
	values := [][]any{
		HeaderRow(),
		{"2024-06-01", 100000.0, "Gaji"},
		{"2024-06-02", "-5000", "Makanan"},
	}
	txs := DecodeRows(values)
	if len(txs) != 2 || txs[0].ID != 1 || txs[1].ID != 2 {
		t.Fatalf("unexpected rows %+v", txs)
	}

	headless := DecodeRows(values[1:])
	if len(headless) != 2 {
		t.Fatalf("tables without header decode every row")
	}
	if len(DecodeRows(nil)) != 0 {
		t.Fatalf("nil table must decode to nothing")
	}
}
