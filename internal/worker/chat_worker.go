// Package worker runs the queue side of the bot: it feeds queued chat events
// through the message pipeline and publishes the replies.
package worker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"keuangan/internal/amqp"
	"keuangan/internal/core"
	"keuangan/internal/log"
)

// MessageHandler turns one inbound event into a reply.
type MessageHandler interface {
	Handle(ctx context.Context, ev core.InboundEvent) (reply string, ok bool)
}

// ReplyPublisher sends a reply back to the chat gateway.
type ReplyPublisher interface {
	PublishReply(ctx context.Context, msg amqp.ReplyMessage) error
}

// EventSource delivers inbound events until ctx ends.
type EventSource interface {
	Consume(ctx context.Context, handler amqp.EventHandler) error
}

// ChatWorker handles queued chat events one at a time.
type ChatWorker struct {
	handler   MessageHandler
	publisher ReplyPublisher
	logger    *log.Logger
	now       func() time.Time
	retry     func() backoff.BackOff
}

// newPublishBackOff outlasts the publisher's open circuit window.
func newPublishBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 45 * time.Second
	return b
}

func NewChatWorker(handler MessageHandler, publisher ReplyPublisher, logger *log.Logger) *ChatWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ChatWorker{
		handler:   handler,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
		retry:     newPublishBackOff,
	}
}

// HandleEvent processes ev once and publishes its reply, retrying only the
// publish. The event is always acknowledged: it may already have been
// recorded, so a redelivery would append it again. A reply that cannot be
// published is dropped and logged.
func (w *ChatWorker) HandleEvent(ctx context.Context, ev core.InboundEvent, correlationID string) error {
	reply, ok := w.handler.Handle(ctx, ev)
	if !ok {
		return nil
	}
	msg := amqp.NewReplyMessage(ev.SenderID, reply, correlationID, w.now())
	publish := func() error {
		return w.publisher.PublishReply(ctx, msg)
	}
	notify := func(err error, wait time.Duration) {
		w.logger.WarnContext(ctx, "Reply publish failed, retrying",
			log.FieldError, err.Error(), "retry_in", wait.String())
	}
	if err := backoff.RetryNotify(publish, backoff.WithContext(w.retry(), ctx), notify); err != nil {
		w.logger.ErrorContext(ctx, "Dropping undeliverable reply",
			log.FieldSender, core.NormalizeSenderID(ev.SenderID),
			"correlation_id", correlationID,
			log.FieldError, err.Error())
	}
	return nil
}

// Run consumes from src until ctx is cancelled.
func (w *ChatWorker) Run(ctx context.Context, src EventSource) error {
	w.logger.InfoContext(ctx, "Chat worker started")
	err := src.Consume(ctx, w.HandleEvent)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Chat worker stopped")
		return nil
	}
	return err
}
