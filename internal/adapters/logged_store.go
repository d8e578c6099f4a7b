// Package adapters decorates ledger backends so every backend reports the
// same structured logs regardless of where the rows live.
package adapters

import (
	"context"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/ledger"
	"keuangan/internal/log"
)

// LoggedStore wraps a ledger.Store and logs each call with its duration.
// Row contents are never logged.
type LoggedStore struct {
	next    ledger.Store
	backend string
	logger  *log.Logger
	sl      *log.StructuredLogger
}

var _ ledger.Store = (*LoggedStore)(nil)

func NewLoggedStore(next ledger.Store, backend string, logger *log.Logger) *LoggedStore {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	l := logger.WithComponent(log.ComponentLedger).With(log.FieldBackend, backend)
	return &LoggedStore{next: next, backend: backend, logger: l, sl: log.NewStructuredLogger(l)}
}

// Unwrap returns the decorated store.
func (s *LoggedStore) Unwrap() ledger.Store { return s.next }

func (s *LoggedStore) Append(ctx context.Context, txs ...core.Transaction) error {
	start := time.Now()
	err := s.next.Append(ctx, txs...)
	s.done(ctx, log.OpAppend, start, err, log.FieldTransactions, len(txs))
	return err
}

func (s *LoggedStore) ListAll(ctx context.Context) ([]core.Transaction, error) {
	start := time.Now()
	txs, err := s.next.ListAll(ctx)
	s.done(ctx, log.OpList, start, err, log.FieldTransactions, len(txs))
	return txs, err
}

func (s *LoggedStore) DeleteByID(ctx context.Context, id int) (bool, error) {
	start := time.Now()
	ok, err := s.next.DeleteByID(ctx, id)
	s.done(ctx, log.OpDelete, start, err, log.FieldTransactionID, id, "deleted", ok)
	return ok, err
}

func (s *LoggedStore) DeleteByKey(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.next.DeleteByKey(ctx, key)
	s.done(ctx, log.OpDelete, start, err, log.FieldKey, key, "deleted", ok)
	return ok, err
}

func (s *LoggedStore) done(ctx context.Context, op string, start time.Time, err error, kv ...any) {
	if err != nil {
		fields := log.NewFields()
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				fields[k] = kv[i+1]
			}
		}
		fields[log.FieldDuration] = time.Since(start).Milliseconds()
		s.sl.LogError(ctx, "Ledger call failed", err, log.ComponentLedger, op, fields)
		return
	}
	args := append([]any{log.FieldOperation, op, log.FieldDuration, time.Since(start).Milliseconds()}, kv...)
	s.logger.DebugContext(ctx, "Ledger call completed", args...)
}
