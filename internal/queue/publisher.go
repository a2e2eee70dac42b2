// Package queue publishes reservation events to RabbitMQ and runs the
// consumer that appends them to an audit log.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/booking"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/model"
)

// Publisher sends reservation events to a durable topic exchange, routed
// by event kind. The connection is opened lazily and re-opened after the
// broker drops it.
type Publisher struct {
	url      string
	exchange string
	log      *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ booking.EventSink = (*Publisher)(nil)

func NewPublisher(url, exchange string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, exchange: exchange, log: log, now: time.Now}
}

// connect must be called with mu held.
func (p *Publisher) connect() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Publish implements booking.EventSink. Messages are persistent and carry
// the event id as message id.
func (p *Publisher) Publish(ctx context.Context, kind booking.EventKind, r model.Reservation) error {
	ev := NewReservationEvent(kind, r, p.now())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, string(kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Type:         string(kind),
		Body:         body,
	})
	if err != nil {
		// Force a fresh connection on the next publish.
		p.closeLocked()
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	p.log.Debug("event published",
		zap.String("event", string(kind)),
		zap.String("event_id", ev.EventID),
		zap.Uint64("reservation_id", r.ID),
	)
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
