package amqp

import (
	"context"
	"errors"
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
	StateHalfOpen
	StateOpen
)

const (
	maxFailures          = 5
	openTimeout          = 30 * time.Second
	publishTimeout       = 5 * time.Second
	maxBackoff           = 30 * time.Second
	maxReconnectAttempts = 5
)

// Client wraps an AMQP connection with a publish circuit breaker and
// reconnect support, bound to a single exchange and queue.
type Client struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	url          string
	exchangeName string
	queueName    string

	failureCount int64
	state        int32
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect dials the broker, declares the topology and swaps the live
// channel in place of any previous one.
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

	if err := setupTopology(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	return nil
}

func setupTopology(channel *amqp091.Channel, exchangeName, queueName string) error {
	// Declare exchange
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = channel.QueueBind(
		queueName,    // queue name
		queueName,    // routing key (same as queue name for direct exchange)
		exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// reconnect retries connect with exponential backoff until it succeeds,
// the context ends, or the attempt budget runs out.
func (c *Client) reconnect(ctx context.Context) error {
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}

		if err := c.connect(); err != nil {
			slog.WarnContext(ctx, "Reconnect attempt failed",
				"attempt", attempt+1,
				"error", err)
			continue
		}

		slog.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
		return nil
	}
	return fmt.Errorf("reconnect failed after %d attempts", maxReconnectAttempts)
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}

	msg := err.Error()
	for _, pattern := range []string{
		"connection refused",
		"connection closed",
		"EOF",
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
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}

	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()

	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// PublishStatementIngested publishes a statement ingested message. A
// connection error triggers one immediate reconnect and retry before the
// failure counts against the circuit breaker.
func (c *Client) PublishStatementIngested(ctx context.Context, sessionID string, imported int) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, not publishing")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewStatementIngestedMessage(sessionID, imported)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := c.publish(ctx, body); err != nil {
		if isConnectionError(err) {
			slog.WarnContext(ctx, "Publish hit connection error, reconnecting", "error", err)
			if rerr := c.connect(); rerr == nil {
				err = c.publish(ctx, body)
			}
		}
		if err != nil {
			c.recordFailure()
			return fmt.Errorf("publish message: %w", err)
		}
	}

	c.recordSuccess()
	slog.InfoContext(ctx, "Published statement ingested message",
		"session_id", sessionID,
		"imported", imported,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("channel not open")
	}

	return channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// ConsumeStatementIngested consumes statement messages until the context
// ends. A dropped delivery channel is resumed via reconnect.
func (c *Client) ConsumeStatementIngested(ctx context.Context, handler func(*StatementIngestedMessage) error) error {
	for {
		msgs, err := c.consume()
		if err != nil {
			return fmt.Errorf("start consuming: %w", err)
		}

		slog.InfoContext(ctx, "Started consuming statement messages", "queue", c.queueName)

		open := true
		for open {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
				return ctx.Err()
			case delivery, ok := <-msgs:
				if !ok {
					open = false
					break
				}
				c.handleDelivery(ctx, delivery, handler)
			}
		}

		slog.WarnContext(ctx, "Message channel closed, reconnecting")
		if err := c.reconnect(ctx); err != nil {
			return fmt.Errorf("reconnect consumer: %w", err)
		}
	}
}

func (c *Client) consume() (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return nil, fmt.Errorf("channel not open")
	}

	return channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler func(*StatementIngestedMessage) error) {
	msg, err := StatementIngestedMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		delivery.Nack(false, false) // reject and don't requeue
		return
	}

	slog.InfoContext(ctx, "Processing statement message",
		"session_id", msg.SessionID,
		"imported", msg.Imported)

	if err := handler(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"session_id", msg.SessionID)
		delivery.Nack(false, true) // reject and requeue
		return
	}

	delivery.Ack(false) // acknowledge successful processing
	slog.InfoContext(ctx, "Successfully processed statement message",
		"session_id", msg.SessionID)
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
