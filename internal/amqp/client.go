// Package amqp carries chat events in from a queue and replies back out
// through a direct exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"

	"keuangan/internal/core"
	"keuangan/internal/log"
)

// Circuit breaker states for publishing.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	// maxReconnect bounds how long Dial and the consume loop retry a lost broker.
	maxReconnect = 2 * time.Minute
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Config struct {
	URL             string
	Exchange        string
	Queue           string
	ReplyRoutingKey string
}

// EventHandler processes one inbound event. Returning an error requeues the
// delivery.
type EventHandler func(ctx context.Context, ev core.InboundEvent, correlationID string) error

type Client struct {
	url          string
	exchangeName string
	queueName    string
	replyKey     string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// Dial connects and declares the topology, retrying with exponential backoff
// until ctx ends or maxReconnect elapses.
func Dial(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.URL == "" || cfg.Exchange == "" || cfg.Queue == "" || cfg.ReplyRoutingKey == "" {
		return nil, fmt.Errorf("%w: AMQP url, exchange, queue and reply routing key are required", core.ErrInvalidArgument)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	c := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		queueName:    cfg.Queue,
		replyKey:     cfg.ReplyRoutingKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.reconnect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newReconnectBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = maxReconnect
	return b
}

func (c *Client) reconnect(ctx context.Context) error {
	op := func() error {
		if err := c.connect(); err != nil {
			if !isConnectionError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "AMQP connect failed, retrying",
			log.FieldError, err.Error(), "retry_in", wait.String())
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(newReconnectBackOff(), ctx), notify); err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	c.logger.InfoContext(ctx, "AMQP connected", "exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	// one event in flight; the ack waits for the reply
	if err := channel.Qos(1, 0, false); err != nil {
		conn.Close()
		return fmt.Errorf("set prefetch: %w", err)
	}
	if err := c.setup(channel); err != nil {
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	if old != nil && !old.IsClosed() {
		old.Close()
	}
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	// inbound events are routed by queue name, replies by the reply key
	for _, q := range []string{c.queueName, c.replyKey} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishReply publishes msg to the reply routing key.
func (c *Client) PublishReply(ctx context.Context, msg ReplyMessage) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish reply: %w", ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("publish reply: not connected")
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, c.exchangeName, c.replyKey, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: msg.CorrelationID,
		Timestamp:     msg.Timestamp,
		Body:          body,
	})
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish reply: %w", err)
	}
	c.recordSuccess()
	c.logger.DebugContext(ctx, "Published reply", log.FieldOperation, log.OpReply, "routing_key", c.replyKey)
	return nil
}

// Consume delivers inbound events to handler until ctx ends. A delivery is
// acked only after handler returns nil; malformed payloads are dropped.
// A lost connection is re-established with backoff.
func (c *Client) Consume(ctx context.Context, handler EventHandler) error {
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		c.logger.WarnContext(ctx, "AMQP consumer lost connection, reconnecting", log.FieldError, err.Error())
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler EventHandler) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("consume: connection closed")
	}
	deliveries, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming chat events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("consume: delivery channel closed")
			}
			c.deliver(ctx, d, handler)
		}
	}
}

func (c *Client) deliver(ctx context.Context, d amqp091.Delivery, handler EventHandler) {
	ev, err := InboundEventFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed chat event", log.FieldError, err.Error())
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, ev, d.CorrelationId); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle chat event, requeueing", log.FieldError, err.Error())
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// isConnectionError reports whether err means the broker link is gone and a
// reconnect may help.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) && amqpErr.Recover {
		return true
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed", "dial"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
