package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keuangan/internal/adapters"
	"keuangan/internal/config"
	"keuangan/internal/core"
	"keuangan/internal/log"
)

func testFactory() *DefaultFactory {
	return NewFactory(log.NewText(io.Discard, 0, "test"))
}

func TestCreateMemoryBackendWithSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(seed, []byte("Date,Amount,Category,Description,OwnerId,Timestamp,Key\n2024-06-01,-5000,Makanan,bakso,628111,,\n"), 0o644))

	res, err := testFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, MemorySeedFile: seed})
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, res.Type)
	assert.Nil(t, res.Cleanup)
	_, logged := res.Store.(*adapters.LoggedStore)
	assert.True(t, logged)

	txs, err := res.Store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "bakso", txs[0].Description)
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keuangan.db")
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer res.Cleanup()

	require.NoError(t, res.Ready(context.Background()))
	require.NoError(t, res.Store.Append(context.Background(), core.Transaction{
		Date: core.NewDate(2024, 6, 1), Amount: core.MoneyFromInt(100000), Category: core.CategorySalary, OwnerID: "628111",
	}))
	txs, err := res.Store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown type", Config{Type: "postgres"}},
		{"sqlite without path", Config{Type: SQLiteBackend}},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testFactory().CreateBackend(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:              "sheets",
		GoogleSpreadsheetID:      "sheet-1",
		GoogleSheetName:          "Transactions",
		GoogleServiceAccountFile: "/secrets/sa.json",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, cfg.Type)
	assert.Equal(t, "/secrets/sa.json", cfg.GoogleServiceAccountFile)
	assert.NoError(t, cfg.Validate())
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "sheets", "memory"}, GetBackendTypeStrings())
}
