// Package services turns inbound chat events into reply text. It owns
// authorization, rate limiting, dispatch, and the command handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"keuangan/internal/ai"
	"keuangan/internal/classify"
	"keuangan/internal/clock"
	"keuangan/internal/core"
	"keuangan/internal/ledger"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/normalize"
	"keuangan/internal/query"
	"keuangan/internal/report"
)

// DefaultAITimeout bounds every model call made while handling a message.
const DefaultAITimeout = 30 * time.Second

// Config wires a MessageService.
type Config struct {
	Ledger    ledger.Store
	Model     ai.Model
	Clock     clock.Source
	Authorize Authorizer
	// Limiter is optional; nil disables per-sender limiting.
	Limiter   *ratelimit.Limiter
	AITimeout time.Duration
	Logger    *log.Logger
}

// MessageService handles one inbound event at a time per caller; it holds no
// per-message state and is safe for concurrent use.
type MessageService struct {
	ledger     ledger.Store
	model      ai.Model
	clock      clock.Source
	authorize  Authorizer
	limiter    *ratelimit.Limiter
	aiTimeout  time.Duration
	classifier *classify.Classifier
	query      *query.Engine
	logger     *log.Logger
	structured *log.StructuredLogger
}

func NewMessageService(cfg Config) (*MessageService, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("ledger store is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("clock source is required")
	}
	if cfg.Model == nil {
		cfg.Model = ai.Unavailable{}
	}
	if cfg.Authorize == nil {
		cfg.Authorize = AllowAll
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = DefaultAITimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	logger := cfg.Logger.WithComponent(log.ComponentService)
	return &MessageService{
		ledger:     cfg.Ledger,
		model:      cfg.Model,
		clock:      cfg.Clock,
		authorize:  cfg.Authorize,
		limiter:    cfg.Limiter,
		aiTimeout:  cfg.AITimeout,
		classifier: classify.New(cfg.Model, cfg.Logger),
		query:      query.New(cfg.Model, cfg.Logger),
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}, nil
}

// Handle processes ev and returns the reply text. ok is false when no reply
// should be sent: unauthorized senders and empty messages.
func (s *MessageService) Handle(ctx context.Context, ev core.InboundEvent) (reply string, ok bool) {
	sender := core.NormalizeSenderID(ev.SenderID)
	if sender == "" || !s.authorize(sender) {
		s.logger.DebugContext(ctx, "Dropping message from unauthorized sender")
		return "", false
	}
	if s.limiter != nil && !s.limiter.Allow(sender) {
		s.logger.WarnContext(ctx, "Sender rate limited", log.FieldSender, sender)
		return SlowDownText, true
	}

	now := s.clock.Now(ctx)

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	route := s.classifier.Classify(aiCtx, ev, now)
	cancel()

	s.logger.InfoContext(ctx, "Message classified",
		log.FieldSender, sender,
		log.FieldRoute, route.Kind.String(),
		log.FieldFallback, route.Fallback)

	switch route.Kind {
	case classify.Command:
		return s.handleCommand(ctx, sender, route.Command, now), true
	case classify.Media:
		return s.handleMedia(ctx, sender, ev, now), true
	case classify.Query:
		return s.handleQuery(ctx, sender, ev.Body, route.Intent, now), true
	case classify.Narration:
		return s.handleNarration(ctx, sender, ev.Body, now), true
	default:
		return "", false
	}
}

func (s *MessageService) handleCommand(ctx context.Context, sender string, cmd classify.ParsedCommand, now clock.Info) string {
	if !cmd.Known {
		return UnknownCommandText
	}
	s.logger.InfoContext(ctx, "Handling command", log.FieldCommand, cmd.Name, log.FieldSender, sender)

	switch cmd.Name {
	case classify.CmdHelp:
		return s.help(ctx)
	case classify.CmdTotal:
		txs, err := s.snapshot(ctx, log.OpList)
		if err != nil {
			return StorageErrText
		}
		if len(txs) == 0 {
			return EmptyLedgerText
		}
		return report.FormatSummary(report.Summarize(txs))
	case classify.CmdList:
		txs, err := s.snapshot(ctx, log.OpList)
		if err != nil {
			return StorageErrText
		}
		return FormatList(txs)
	case classify.CmdDelete:
		return s.delete(ctx, sender, cmd.Args)
	case classify.CmdReport:
		txs, err := s.snapshot(ctx, log.OpReport)
		if err != nil {
			return StorageErrText
		}
		return report.MonthlyReportFor(txs, cmd.Args, now)
	}
	return UnknownCommandText
}

func (s *MessageService) help(ctx context.Context) string {
	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()
	text, err := s.model.Help(aiCtx)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil && !errors.Is(err, ai.ErrUnavailable) {
			s.logger.WarnContext(ctx, "Help generation failed, using static text", log.FieldError, err.Error())
		}
		return StaticHelpText
	}
	return text
}

// FormatList renders the /list reply: the newest rows first, then a count of
// the rest.
func FormatList(txs []core.Transaction) string {
	if len(txs) == 0 {
		return EmptyLedgerText
	}
	var b strings.Builder
	b.WriteString("📋 *Transaksi Terbaru (Semua Pengguna)*\n\n")
	start := len(txs) - listLimit
	if start < 0 {
		start = 0
	}
	for i := len(txs) - 1; i >= start; i-- {
		b.WriteString(query.FormatRow(txs[i]))
	}
	if len(txs) > listLimit {
		fmt.Fprintf(&b, "... dan %d transaksi lainnya.\nGunakan /total untuk ringkasan lengkap.", len(txs)-listLimit)
	}
	return strings.TrimRight(b.String(), "\n")
}

// delete resolves the displayed ID to the row's durable key from a fresh
// snapshot, so a concurrent mutation cannot redirect the delete to another
// row. Rows without a key fall back to positional deletion.
func (s *MessageService) delete(ctx context.Context, sender string, args []string) string {
	if len(args) == 0 {
		return DeleteUsageText
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return DeleteUsageText
	}
	txs, err := s.snapshot(ctx, log.OpDelete)
	if err != nil {
		return StorageErrText
	}
	if id < 1 || id > len(txs) {
		return deleteNotFoundText(id)
	}
	target := txs[id-1]

	var deleted bool
	if target.Key != "" {
		deleted, err = s.ledger.DeleteByKey(ctx, target.Key)
	} else {
		deleted, err = s.ledger.DeleteByID(ctx, id)
	}
	if err != nil {
		s.structured.LogError(ctx, "Delete failed", err, log.ComponentLedger, log.OpDelete,
			log.NewFields().WithSender(sender).WithTransaction(id, target.Key, target.Amount.String(), string(target.Category)))
		return StorageErrText
	}
	if !deleted {
		return deleteNotFoundText(id)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithSender(sender).WithTransaction(id, target.Key, target.Amount.String(), string(target.Category)).ToSlice()...)
	return deletedText(id)
}

func (s *MessageService) handleMedia(ctx context.Context, sender string, ev core.InboundEvent, now clock.Info) string {
	if !strings.HasPrefix(strings.ToLower(ev.MediaMIMEType), "image/") || len(ev.Media) == 0 {
		return NotImageText
	}
	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	raw, err := s.model.ExtractImage(aiCtx, ev.Media, ev.MediaMIMEType, now)
	cancel()
	if err != nil {
		s.logExtractionFailure(ctx, err)
		raw = nil
	}
	res := normalize.NormalizeWith(raw, now.Today(), normalize.Options{
		DefaultDescription: normalize.ReceiptDescription,
		OwnerID:            sender,
	})
	switch res.Outcome() {
	case normalize.NoCandidates:
		return ReceiptNoCandidates
	case normalize.AllInvalid:
		return ReceiptAllInvalidText
	}
	return s.record(ctx, sender, res, "📸 Struk diproses dan tercatat")
}

func (s *MessageService) handleNarration(ctx context.Context, sender, body string, now clock.Info) string {
	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	raw, err := s.model.ExtractText(aiCtx, strings.TrimSpace(body), now)
	cancel()
	if err != nil {
		s.logExtractionFailure(ctx, err)
		raw = nil
	}
	res := normalize.NormalizeWith(raw, now.Today(), normalize.Options{OwnerID: sender})
	switch res.Outcome() {
	case normalize.NoCandidates:
		return NoCandidatesText
	case normalize.AllInvalid:
		return AllInvalidText
	}
	return s.record(ctx, sender, res, "✅ Tercatat")
}

func (s *MessageService) record(ctx context.Context, sender string, res normalize.Result, header string) string {
	if err := s.ledger.Append(ctx, res.Transactions...); err != nil {
		s.structured.LogError(ctx, "Append failed", err, log.ComponentLedger, log.OpAppend,
			log.NewFields().WithSender(sender))
		return StorageErrText
	}
	s.structured.LogTransactionsRecorded(ctx, sender, len(res.Transactions), res.Candidates)
	return recordedText(header, res.Transactions)
}

func (s *MessageService) logExtractionFailure(ctx context.Context, err error) {
	if errors.Is(err, ai.ErrUnavailable) {
		return
	}
	s.logger.WarnContext(ctx, "Extraction failed, treating as no candidates",
		log.FieldOperation, log.OpExtract, log.FieldError, err.Error())
}

func (s *MessageService) handleQuery(ctx context.Context, sender, body string, intent core.QueryIntent, now clock.Info) string {
	txs, err := s.snapshot(ctx, log.OpQuery)
	if err != nil {
		return StorageErrText
	}
	s.logger.InfoContext(ctx, "Answering query",
		log.FieldIntent, string(intent.Kind), log.FieldConfidence, intent.Confidence)
	if intent.Kind == core.IntentStructuredQuery {
		if _, ok := query.NormalizePeriod(intent.FiltersOrEmpty().Period); ok {
			return s.query.AnswerStructuredFor(sender, intent, txs, now)
		}
		s.logger.InfoContext(ctx, "Unrecognized query period, answering as open question",
			"period", intent.FiltersOrEmpty().Period)
	}
	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()
	return s.query.AnswerOpen(aiCtx, strings.TrimSpace(body), txs, now)
}

func (s *MessageService) snapshot(ctx context.Context, op string) ([]core.Transaction, error) {
	txs, err := s.ledger.ListAll(ctx)
	if err != nil {
		s.structured.LogError(ctx, "Ledger read failed", err, log.ComponentLedger, op, log.NewFields())
		return nil, err
	}
	return txs, nil
}
