// Package memory is an in-process ledger that keeps the same row table a
// spreadsheet would: a header row followed by data rows in append order.
package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/ledger"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any // rows[0] is the header
	now  func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{rows: [][]any{ledger.HeaderRow()}, now: time.Now}
}

// NewFromFile seeds the store from a CSV export of the ledger sheet.
// A missing file yields an empty ledger.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, c := range rec {
			row[j] = c
		}
		if i == 0 && ledger.IsHeader(row) {
			continue
		}
		s.rows = append(s.rows, row)
	}
	return s, nil
}

// WithClock replaces the clock used to stamp RecordedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Append stamps and stores all rows under one lock.
func (s *Store) Append(_ context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	stamped, err := ledger.Stamp(txs, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range stamped {
		s.rows = append(s.rows, ledger.EncodeRow(tx))
	}
	return nil
}

// ListAll decodes every data row.
func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.DecodeRows(s.rows), nil
}

// DeleteByID removes the row at position id and shifts later rows up.
func (s *Store) DeleteByID(_ context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ledger.InBounds(id, len(s.rows)) {
		return false, nil
	}
	s.rows = append(s.rows[:id], s.rows[id+1:]...)
	return true, nil
}

// DeleteByKey removes the row whose Key column equals key.
func (s *Store) DeleteByKey(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; i < len(s.rows); i++ {
		row := s.rows[i]
		if ledger.ColKey < len(row) && ledger.CellString(row[ledger.ColKey]) == key {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of rows including the header.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
