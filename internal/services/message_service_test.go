package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keuangan/internal/ai"
	"keuangan/internal/clock"
	"keuangan/internal/core"
	"keuangan/internal/ledger/memory"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/query"
)

type fixedClock struct{ info clock.Info }

func (f fixedClock) Now(context.Context) clock.Info { return f.info }

var june15 = clock.Fixed(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))

type fakeModel struct {
	intent     core.QueryIntent
	intentErr  error
	candidates []core.RawTransaction
	extractErr error
	answer     string
	help       string
	helpErr    error
	images     int
}

func (f *fakeModel) ExtractText(context.Context, string, clock.Info) ([]core.RawTransaction, error) {
	return f.candidates, f.extractErr
}

func (f *fakeModel) ExtractImage(context.Context, []byte, string, clock.Info) ([]core.RawTransaction, error) {
	f.images++
	return f.candidates, f.extractErr
}

func (f *fakeModel) ClassifyIntent(context.Context, string, clock.Info) (core.QueryIntent, error) {
	return f.intent, f.intentErr
}

func (f *fakeModel) Answer(context.Context, string, string, clock.Info) (string, error) {
	return f.answer, nil
}

func (f *fakeModel) Help(context.Context) (string, error) {
	return f.help, f.helpErr
}

// failingStore reports a storage fault on every call.
type failingStore struct{}

func (failingStore) Append(context.Context, ...core.Transaction) error { return core.ErrStorage }
func (failingStore) ListAll(context.Context) ([]core.Transaction, error) {
	return nil, fmt.Errorf("%w: sheets unreachable", core.ErrStorage)
}
func (failingStore) DeleteByID(context.Context, int) (bool, error)     { return false, core.ErrStorage }
func (failingStore) DeleteByKey(context.Context, string) (bool, error) { return false, core.ErrStorage }

func str(s string) *string { return &s }

func raw(amount, category, desc string) core.RawTransaction {
	return core.RawTransaction{Amount: core.RawText(amount), Category: str(category), Description: str(desc)}
}

func newService(t *testing.T, model ai.Model, store *memory.Store, authorize Authorizer) *MessageService {
	t.Helper()
	svc, err := NewMessageService(Config{
		Ledger:    store,
		Model:     model,
		Clock:     fixedClock{june15},
		Authorize: authorize,
		Logger:    log.NewText(io.Discard, 0, "test"),
	})
	require.NoError(t, err)
	return svc
}

func msg(body string) core.InboundEvent {
	return core.InboundEvent{SenderID: "628111@c.us", Body: body}
}

func TestNewMessageServiceRequiresLedgerAndClock(t *testing.T) {
	_, err := NewMessageService(Config{Clock: fixedClock{june15}})
	assert.Error(t, err)
	_, err = NewMessageService(Config{Ledger: memory.New()})
	assert.Error(t, err)
}

func TestUnauthorizedSenderIsDropped(t *testing.T) {
	model := &fakeModel{}
	svc := newService(t, model, memory.New(), AllowList([]string{"628999"}))
	reply, ok := svc.Handle(context.Background(), msg("/help"))
	assert.False(t, ok)
	assert.Empty(t, reply)

	reply, ok = svc.Handle(context.Background(), core.InboundEvent{SenderID: "628999@c.us", Body: "/help"})
	assert.True(t, ok)
	assert.NotEmpty(t, reply)
}

func TestNarrationRecordsTransactions(t *testing.T) {
	store := memory.New()
	model := &fakeModel{
		intent:     core.QueryIntent{Kind: core.IntentNarration, Confidence: 0.9},
		candidates: []core.RawTransaction{raw("-25rb", "makanan", "bakso"), raw("0", "Makanan", "nol"), raw("5000", "Entah", "")},
	}
	svc := newService(t, model, store, nil)

	reply, ok := svc.Handle(context.Background(), msg("bakso 25rb, nemu duit 5000"))
	require.True(t, ok)
	assert.Contains(t, reply, "✅ Tercatat 2 transaksi")
	assert.Contains(t, reply, "-Rp 25.000 - Makanan")
	assert.Contains(t, reply, "Rp 5.000 - Lainnya")
	assert.Contains(t, reply, "Tanggal: 2024-06-15")

	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 2)
	assert.Equal(t, "628111", all[0].OwnerID)
	assert.Equal(t, "Tanpa deskripsi", all[1].Description)
}

func TestNarrationOutcomes(t *testing.T) {
	model := &fakeModel{intent: core.QueryIntent{Kind: core.IntentNarration, Confidence: 1}}
	svc := newService(t, model, memory.New(), nil)

	reply, _ := svc.Handle(context.Background(), msg("halo"))
	assert.Equal(t, NoCandidatesText, reply)

	model.candidates = []core.RawTransaction{raw("abc", "Makanan", "x")}
	reply, _ = svc.Handle(context.Background(), msg("makan banyak"))
	assert.Equal(t, AllInvalidText, reply)

	model.candidates = nil
	model.extractErr = errors.New("model exploded")
	reply, _ = svc.Handle(context.Background(), msg("makan 10rb"))
	assert.Equal(t, NoCandidatesText, reply)
	assert.NotContains(t, reply, "exploded")
}

func TestIntentFailureStillRecords(t *testing.T) {
	store := memory.New()
	model := &fakeModel{
		intentErr:  errors.New("timeout"),
		candidates: []core.RawTransaction{raw("-10000", "Transportasi", "parkir")},
	}
	svc := newService(t, model, store, nil)
	reply, _ := svc.Handle(context.Background(), msg("parkir 10rb"))
	assert.Contains(t, reply, "Tercatat 1 transaksi")
	assert.Equal(t, 2, store.Len())
}

func TestMediaHandling(t *testing.T) {
	store := memory.New()
	model := &fakeModel{candidates: []core.RawTransaction{{Amount: core.RawText("-45000"), Category: str("Makanan")}}}
	svc := newService(t, model, store, nil)

	reply, _ := svc.Handle(context.Background(), core.InboundEvent{SenderID: "628111", HasMedia: true, MediaMIMEType: "application/pdf", Media: []byte("x")})
	assert.Equal(t, NotImageText, reply)
	assert.Zero(t, model.images)

	reply, _ = svc.Handle(context.Background(), core.InboundEvent{SenderID: "628111", HasMedia: true, MediaMIMEType: "image/jpeg", Media: []byte{0xff}})
	assert.Contains(t, reply, "📸 Struk diproses dan tercatat 1 transaksi")
	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, "Dari struk", all[0].Description)

	model.candidates = nil
	reply, _ = svc.Handle(context.Background(), core.InboundEvent{SenderID: "628111", HasMedia: true, MediaMIMEType: "image/png", Media: []byte{1}})
	assert.Equal(t, ReceiptNoCandidates, reply)
}

func seed(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, store.Append(context.Background(), core.Transaction{
			Date:        core.NewDate(2024, 6, 15),
			Amount:      core.MoneyFromInt(int64(-1000 * i)),
			Category:    core.CategoryFood,
			Description: fmt.Sprintf("item %d", i),
			OwnerID:     "628111",
		}))
	}
}

func TestListCommand(t *testing.T) {
	store := memory.New()
	svc := newService(t, &fakeModel{}, store, nil)

	reply, _ := svc.Handle(context.Background(), msg("/list"))
	assert.Equal(t, EmptyLedgerText, reply)

	seed(t, store, 12)
	reply, _ = svc.Handle(context.Background(), msg("/list"))
	assert.Contains(t, reply, "12. -Rp 12.000")
	assert.Contains(t, reply, "... dan 2 transaksi lainnya.")
	assert.NotContains(t, reply, "item 2\n")
	assert.Less(t, strings.Index(reply, "item 12"), strings.Index(reply, "item 3"))
}

func TestDeleteCommand(t *testing.T) {
	store := memory.New()
	seed(t, store, 3)
	svc := newService(t, &fakeModel{}, store, nil)

	reply, _ := svc.Handle(context.Background(), msg("/delete abc"))
	assert.Equal(t, DeleteUsageText, reply)
	reply, _ = svc.Handle(context.Background(), msg("/delete"))
	assert.Equal(t, DeleteUsageText, reply)

	reply, _ = svc.Handle(context.Background(), msg("/delete 9"))
	assert.Equal(t, deleteNotFoundText(9), reply)
	reply, _ = svc.Handle(context.Background(), msg("/delete 0"))
	assert.Equal(t, deleteNotFoundText(0), reply)

	reply, _ = svc.Handle(context.Background(), msg("/delete 2"))
	assert.Equal(t, deletedText(2), reply)
	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 2)
	assert.Equal(t, "item 1", all[0].Description)
	assert.Equal(t, "item 3", all[1].Description)
}

func TestDeleteLegacyRowFallsBackToPosition(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/seed.csv"
	require.NoError(t, writeFile(path, "Date,Amount,Category\n2024-06-01,-5000,Makanan\n2024-06-02,-6000,Makanan\n"))
	store, err := memory.NewFromFile(path)
	require.NoError(t, err)
	svc := newService(t, &fakeModel{}, store, nil)

	reply, _ := svc.Handle(context.Background(), msg("/delete 1"))
	assert.Equal(t, deletedText(1), reply)
	all, _ := store.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.True(t, all[0].Amount.Equal(core.MoneyFromInt(-6000)))
}

func TestTotalAndReportCommands(t *testing.T) {
	store := memory.New()
	svc := newService(t, &fakeModel{}, store, nil)

	reply, _ := svc.Handle(context.Background(), msg("/total"))
	assert.Equal(t, EmptyLedgerText, reply)

	require.NoError(t, store.Append(context.Background(),
		core.Transaction{Date: core.NewDate(2024, 6, 1), Amount: core.MoneyFromInt(100000), Category: core.CategorySalary, OwnerID: "628111"},
		core.Transaction{Date: core.NewDate(2024, 6, 2), Amount: core.MoneyFromInt(-25000), Category: core.CategoryFood, OwnerID: "628111"},
	))
	reply, _ = svc.Handle(context.Background(), msg("/total"))
	assert.Contains(t, reply, "Jumlah Bersih: Rp 75.000")

	reply, _ = svc.Handle(context.Background(), msg("/report"))
	assert.Contains(t, reply, "Laporan Bulanan Juni 2024")
	reply, _ = svc.Handle(context.Background(), msg("/report 2024-03"))
	assert.Contains(t, reply, "Laporan Bulanan Maret 2024")
}

func TestHelpFallsBackToStaticText(t *testing.T) {
	model := &fakeModel{help: "Bantuan dari AI"}
	svc := newService(t, model, memory.New(), nil)
	reply, _ := svc.Handle(context.Background(), msg("/help"))
	assert.Equal(t, "Bantuan dari AI", reply)

	model.helpErr = errors.New("quota")
	reply, _ = svc.Handle(context.Background(), msg("/help"))
	assert.Equal(t, StaticHelpText, reply)

	svc = newService(t, ai.Unavailable{}, memory.New(), nil)
	reply, _ = svc.Handle(context.Background(), msg("/help"))
	assert.Equal(t, StaticHelpText, reply)
}

func TestUnknownCommand(t *testing.T) {
	svc := newService(t, &fakeModel{}, memory.New(), nil)
	reply, ok := svc.Handle(context.Background(), msg("/hapus 3"))
	assert.True(t, ok)
	assert.Equal(t, UnknownCommandText, reply)
}

func TestQueryRoutes(t *testing.T) {
	store := memory.New()
	seed(t, store, 2)
	model := &fakeModel{
		intent: core.QueryIntent{Kind: core.IntentStructuredQuery, Confidence: 0.9, Filters: &core.QueryFilters{Period: "today"}},
		answer: "Pengeluaran Anda wajar.",
	}
	svc := newService(t, model, store, nil)

	reply, _ := svc.Handle(context.Background(), msg("transaksi hari ini"))
	assert.Contains(t, reply, "Hari ini")
	assert.Contains(t, reply, "Jumlah Transaksi: 2")

	model.intent = core.QueryIntent{Kind: core.IntentOpenQuestion, Confidence: 0.8}
	reply, _ = svc.Handle(context.Background(), msg("apakah pengeluaranku wajar?"))
	assert.Equal(t, "Pengeluaran Anda wajar.", reply)

	model.intent = core.QueryIntent{Kind: core.IntentStructuredQuery, Confidence: 0.9, Filters: &core.QueryFilters{Category: "Hiburan"}}
	reply, _ = svc.Handle(context.Background(), msg("transaksi hiburan"))
	assert.Equal(t, query.NoMatchText, reply)

	model.intent = core.QueryIntent{Kind: core.IntentStructuredQuery, Confidence: 0.9, Filters: &core.QueryFilters{Period: "last_7_days"}}
	reply, _ = svc.Handle(context.Background(), msg("pengeluaran 7 hari terakhir"))
	assert.Equal(t, "Pengeluaran Anda wajar.", reply, "unrecognized period is answered as an open question")
}

func TestStorageFaultReplyIsGeneric(t *testing.T) {
	svc, err := NewMessageService(Config{
		Ledger: failingStore{},
		Model:  &fakeModel{candidates: []core.RawTransaction{raw("-1000", "Makanan", "x")}},
		Clock:  fixedClock{june15},
		Logger: log.NewText(io.Discard, 0, "test"),
	})
	require.NoError(t, err)

	for _, body := range []string{"/list", "/total", "/report", "/delete 1", "makan 1000"} {
		reply, _ := svc.Handle(context.Background(), msg(body))
		assert.Equal(t, StorageErrText, reply, body)
		assert.NotContains(t, reply, "unreachable")
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2})
	defer limiter.Stop()
	svc, err := NewMessageService(Config{
		Ledger:  memory.New(),
		Model:   &fakeModel{},
		Clock:   fixedClock{june15},
		Limiter: limiter,
		Logger:  log.NewText(io.Discard, 0, "test"),
	})
	require.NoError(t, err)

	svc.Handle(context.Background(), msg("/list"))
	svc.Handle(context.Background(), msg("/list"))
	reply, ok := svc.Handle(context.Background(), msg("/list"))
	assert.True(t, ok)
	assert.Equal(t, SlowDownText, reply)
}

func TestEmptyMessageGetsNoReply(t *testing.T) {
	svc := newService(t, &fakeModel{}, memory.New(), nil)
	_, ok := svc.Handle(context.Background(), msg("   "))
	assert.False(t, ok)
}
