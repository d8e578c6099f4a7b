package backend

import (
	"context"
	"fmt"

	goption "google.golang.org/api/option"

	"keuangan/internal/adapters"
	"keuangan/internal/ledger/google"
	"keuangan/internal/ledger/memory"
	"keuangan/internal/log"
	"keuangan/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger     *log.Logger
	sheetsOpts []goption.ClientOption
}

// NewFactory creates a new backend factory. Sheets client options, when
// given, replace credential loading.
func NewFactory(logger *log.Logger, sheetsOpts ...goption.ClientOption) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger:     logger.WithComponent(log.ComponentBackend),
		sheetsOpts: sheetsOpts,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend builds the store for config and wraps it in a LoggedStore.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	res.Type = config.Type
	res.Store = adapters.NewLoggedStore(res.Store, config.Type.String(), f.logger)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Store:   repo,
		Cleanup: repo.Close,
		Ready: func(ctx context.Context) error {
			_, err := repo.Count(ctx)
			return err
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: []byte(config.GoogleServiceAccountJSON),
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.sheetsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger header: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &Result{
		Store: cli,
		Ready: cli.EnsureHeader,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store, err := memory.NewFromFile(config.MemorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile, "rows", store.Len()-1)
	return &Result{Store: store, Ready: func(context.Context) error { return nil }}, nil
}
