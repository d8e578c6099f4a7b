package ledger

import (
	"context"

	"keuangan/internal/core"
)

// Ports for ledger backends. Every backend keeps the same row semantics:
// one header row, rows in append order, positional IDs, deletion by row shift.
type (
	Appender interface {
		// Append adds txs at the end of the ledger in one backend call.
		Append(ctx context.Context, txs ...core.Transaction) error
	}

	Lister interface {
		// ListAll returns every row after the header, ID = 1-based position.
		ListAll(ctx context.Context) ([]core.Transaction, error)
	}

	Deleter interface {
		// DeleteByID removes the row at position id. It returns false without
		// mutating anything when id is outside [1, rowCount-1].
		DeleteByID(ctx context.Context, id int) (bool, error)
		// DeleteByKey removes the row carrying key, wherever it currently is.
		DeleteByKey(ctx context.Context, key string) (bool, error)
	}

	Store interface {
		Appender
		Lister
		Deleter
	}
)
