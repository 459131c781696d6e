package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrBrokerUnavailable is returned without dialing while a failed dial is
// still inside its retry window.
var ErrBrokerUnavailable = errors.New("amqp broker unavailable")

const (
	defaultDialTimeout = 2 * time.Second
	defaultRetryAfter  = 10 * time.Second
)

// AMQPPublisher publishes events to a durable topic exchange with the
// event type as routing key. The connection is dialed lazily and re-dialed
// after the broker drops it, at most once per retry window.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   *slog.Logger

	dialTimeout time.Duration
	retryAfter  time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

func NewAMQPPublisher(url, exchange string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:         url,
		exchange:    exchange,
		logger:      logger,
		dialTimeout: defaultDialTimeout,
		retryAfter:  defaultRetryAfter,
	}
}

// WithTimeouts bounds a single dial and the pause between failed dials.
// Non-positive values keep the defaults.
func (p *AMQPPublisher) WithTimeouts(dial, retryAfter time.Duration) *AMQPPublisher {
	if dial > 0 {
		p.dialTimeout = dial
	}
	if retryAfter > 0 {
		p.retryAfter = retryAfter
	}
	return p
}

// Publish marshals ev as JSON and sends it as a persistent message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		p.exchange,
		string(ev.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         string(ev.Type),
			Body:         body,
		},
	)
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// channel returns an open channel, dialing when needed. Caller holds mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if time.Now().Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		p.retryAt = time.Now().Add(p.retryAfter)
		p.logger.Warn("amqp dial failed", "err", err, "retry_after", p.retryAfter)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = time.Now().Add(p.retryAfter)
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.conn, p.ch = conn, ch
	p.retryAt = time.Time{}
	p.logger.Info("amqp publisher connected", "exchange", p.exchange)
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
