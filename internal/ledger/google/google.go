package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab holding the ledger.
const DefaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time

	// serializes read-then-delete so two deletes cannot race on positions
	mu      sync.Mutex
	sheetID *int64
}

var _ ledger.Store = (*Client)(nil)

// Config describes which spreadsheet to use and how to authenticate.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
	CredentialsFile string
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: []byte(strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, cfg)
}

// New creates a client. Extra client options replace credential loading,
// which lets tests point the client at a local server.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if len(opts) == 0 {
		creds, err := loadCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		now:           time.Now,
	}, nil
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case len(cfg.CredentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials", "json_length", len(cfg.CredentialsJSON))
		return cfg.CredentialsJSON, nil
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// a1 quotes the sheet name for an A1 range.
func (c *Client) a1(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), cells)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStorage, op, err)
}

// EnsureHeader writes the header row into an empty sheet and adds the Key
// column to a sheet that still carries the six legacy columns.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A1:G1")).Context(ctx).Do()
	if err != nil {
		return storageErr("read header", err)
	}
	var first []any
	if len(resp.Values) > 0 {
		first = resp.Values[0]
	}
	switch {
	case len(first) == 0:
		vr := &gsheet.ValueRange{Values: [][]any{ledger.HeaderRow()}}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1:G1"), vr).
			ValueInputOption("RAW").Context(ctx).Do()
	case ledger.IsHeader(first) && len(first) < ledger.NumColumns:
		vr := &gsheet.ValueRange{Values: [][]any{{ledger.Header[ledger.ColKey]}}}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("G1"), vr).
			ValueInputOption("RAW").Context(ctx).Do()
	}
	if err != nil {
		return storageErr("write header", err)
	}
	return nil
}

// Append writes all rows in one values.append call.
func (c *Client) Append(ctx context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	stamped, err := ledger.Stamp(txs, c.now())
	if err != nil {
		return err
	}
	rows := make([][]any, len(stamped))
	for i, tx := range stamped {
		rows[i] = ledger.EncodeRow(tx)
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:G"), &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return storageErr("append rows", err)
	}
	return nil
}

// ListAll reads the whole ledger in row order.
func (c *Client) ListAll(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeRows(values), nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:G")).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, storageErr("read rows", err)
	}
	return resp.Values, nil
}

// DeleteByID removes the row at position id. The sheet is re-read first so
// the bounds check runs against the current row count.
func (c *Client) DeleteByID(ctx context.Context, id int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	values, err := c.readAll(ctx)
	if err != nil {
		return false, err
	}
	if !ledger.InBounds(id, len(values)) {
		return false, nil
	}
	if err := c.deleteRow(ctx, int64(id)); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteByKey removes the row carrying key, wherever it sits now.
func (c *Client) DeleteByKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	values, err := c.readAll(ctx)
	if err != nil {
		return false, err
	}
	for i := 1; i < len(values); i++ {
		row := values[i]
		if ledger.ColKey < len(row) && ledger.CellString(row[ledger.ColKey]) == key {
			if err := c.deleteRow(ctx, int64(i)); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// deleteRow removes the zero-based sheet row index; index 0 is the header.
func (c *Client) deleteRow(ctx context.Context, index int64) error {
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      index,
					EndIndex:        index + 1,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return storageErr("delete row", err)
	}
	return nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, storageErr("read spreadsheet metadata", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: sheet %q not found", core.ErrStorage, c.sheetName)
}
