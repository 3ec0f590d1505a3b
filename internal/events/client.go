package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
)

// Client publishes and consumes domain events over a direct exchange with a
// single durable queue. A small circuit breaker guards publishes against a
// flapping broker.
type Client struct {
	mu           sync.Mutex // guards conn and channel across reconnects
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	url          string
	exchangeName string
	queueName    string

	failureCount int64
	state        int32
	lastFailure  int64 // unix nanos, written and read atomically
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name on a direct exchange.
	err = c.channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"connection refused",
		"connection closed",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (c *Client) isCircuitOpen() bool {
	state := atomic.LoadInt32(&c.state)
	if state == StateOpen {
		last := time.Unix(0, atomic.LoadInt64(&c.lastFailure))
		if time.Since(last) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	}
	return false
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	atomic.StoreInt64(&c.lastFailure, time.Now().UnixNano())
	if failures >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// reconnect rebuilds the connection and channel after a broker drop and
// returns the channel to publish on. When another goroutine already
// reconnected, the caller's stale channel no longer matches and the current
// one is returned as is.
func (c *Client) reconnect(stale *amqp091.Channel) (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != stale {
		return c.channel, nil
	}

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("redial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reopen channel: %w", err)
	}

	c.conn = conn
	c.channel = channel
	if err := c.setup(); err != nil {
		return nil, err
	}
	return c.channel, nil
}

// currentChannel snapshots the channel so a publish keeps using one channel
// even while a failed peer swaps in a new connection.
func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishEvent implements services.Publisher.
func (c *Client) PublishEvent(ctx context.Context, eventType string, ownerID, entityID int64, detail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish event: circuit breaker is open")
	}

	envelope := NewEnvelope(eventType, ownerID, entityID, detail)
	body, err := envelope.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    envelope.Timestamp,
		Body:         body,
	}

	channel := c.currentChannel()
	err = channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, publishing)
	if isConnectionError(err) {
		if fresh, rerr := c.reconnect(channel); rerr == nil {
			err = fresh.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, publishing)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish event: %w", err)
	}
	c.recordSuccess()

	slog.InfoContext(ctx, "Published event",
		"event_id", envelope.EventID,
		"event_type", eventType,
		"entity_id", entityID,
		"exchange", c.exchangeName)

	return nil
}

// Consume delivers envelopes to handler until ctx is cancelled. Messages are
// acked only after the handler succeeds; handler failures nack with requeue,
// malformed payloads are dropped. Broker drops trigger reconnection with
// exponential backoff.
func (c *Client) Consume(ctx context.Context, handler func(*Envelope) error) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeLoop(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		backoff := exponentialBackoff(attempt)
		slog.ErrorContext(ctx, "Consumer disconnected, retrying",
			"error", err,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if _, rerr := c.reconnect(c.currentChannel()); rerr != nil {
			slog.ErrorContext(ctx, "Reconnect failed", "error", rerr)
			continue
		}
		attempt = -1
	}
}

func (c *Client) consumeLoop(ctx context.Context, handler func(*Envelope) error) error {
	msgs, err := c.currentChannel().Consume(
		c.queueName,
		"",    // consumer
		false, // auto-ack (manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			envelope, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(envelope); err != nil {
				slog.ErrorContext(ctx, "Failed to handle event",
					"error", err,
					"event_id", envelope.EventID,
					"event_type", envelope.EventType)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
