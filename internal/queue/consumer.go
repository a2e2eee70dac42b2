package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLog appends one human-readable line per reservation event.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

func NewAuditLog(path string) *AuditLog { return &AuditLog{path: path} }

// FormatLine renders ev as a single log line.
func FormatLine(ev ReservationEvent) string {
	payment := "-"
	if ev.PaymentID != nil {
		payment = fmt.Sprint(*ev.PaymentID)
	}
	return fmt.Sprintf("[%s] %s | reservation_id=%d | court_id=%d | user_id=%d | date=%s | time=%s-%s | status=%s | payment_id=%s | event_id=%s\n",
		ev.OccurredAt.Format(time.RFC3339), ev.Kind, ev.ReservationID, ev.CourtID, ev.UserID,
		ev.Date, ev.Start, ev.End, ev.Status, payment, ev.EventID)
}

func (a *AuditLog) Append(ev ReservationEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(a.path), err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// handle decodes one delivery body and appends it.
func (a *AuditLog) handle(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return a.Append(ev)
}

// AuditConsumer binds a durable queue to every reservation event of the
// exchange and feeds the deliveries to an AuditLog.
type AuditConsumer struct {
	URL      string
	Exchange string
	Queue    string
	Log      *AuditLog
	Logger   *zap.Logger
}

// Run consumes until ctx is done, reconnecting with capped exponential
// backoff whenever the broker is unreachable or drops the connection.
func (c *AuditConsumer) Run(ctx context.Context) error {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}
	if err := declareExchange(ch, c.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.Queue, "reservation.#", c.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	log.Info("audit consumer started", zap.String("queue", c.Queue), zap.String("exchange", c.Exchange))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Log.handle(d.Body); err != nil {
				log.Error("audit consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // do not requeue a poison message
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
