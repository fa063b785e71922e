package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/sawpanic/baccarun/internal/session"
)

// Routing keys on the events exchange
const (
	KeyOutcomeRecorded = "outcome.recorded"
	KeyPredictionMade  = "prediction.made"
)

// channel is the part of *amqp.Channel the publisher needs
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends session events to a topic exchange
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

var _ session.Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher connects to url and declares a durable topic exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	config := amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	}
	conn, err := amqp.DialConfig(url, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // delete when unused
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("Connected to AMQP")
	p := newPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, now: time.Now}
}

func (p *AMQPPublisher) PublishOutcome(ctx context.Context, ev session.OutcomeEvent) error {
	return p.publish(ctx, KeyOutcomeRecorded, ev)
}

func (p *AMQPPublisher) PublishPrediction(ctx context.Context, ev session.PredictionEvent) error {
	return p.publish(ctx, KeyPredictionMade, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, key string, body any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", key, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    p.now().UTC(),
		Type:         key,
		Body:         data,
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Publish(p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Close shuts the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Noop drops every event; used when no broker is configured
type Noop struct{}

func (Noop) PublishOutcome(context.Context, session.OutcomeEvent) error       { return nil }
func (Noop) PublishPrediction(context.Context, session.PredictionEvent) error { return nil }
