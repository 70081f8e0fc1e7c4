package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
	"github.com/iliyamo/seat-hold-coordinator/internal/queue"
	"github.com/iliyamo/seat-hold-coordinator/internal/repository"
)

// AMQPPublisher publishes domain events to RabbitMQ.  The connection is
// opened lazily and re-dialed after a failure, so a broker outage only
// costs the events published while it lasts.  Messages are persistent and
// sent to durable queues through the default exchange.
type AMQPPublisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for the broker at url.  No
// connection is made until the first event.
func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPPublisher{url: url, log: log.With(zap.String("component", "amqp"))}
}

// BookingConfirmed publishes a queue.BookingConfirmedEvent.
func (p *AMQPPublisher) BookingConfirmed(ctx context.Context, rec model.BookingRecord) error {
	return p.publish(ctx, queue.BookingConfirmedQueue, BookingEvent(rec))
}

// HoldsExpired publishes one queue.HoldExpiredEvent per reaped hold.
func (p *AMQPPublisher) HoldsExpired(ctx context.Context, holds []model.ExpiredHold, at time.Time) error {
	var errs []error
	for _, h := range holds {
		if err := p.publish(ctx, queue.HoldExpiredQueue, ExpiredEvent(h, at)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BookingEvent maps a booking record to its wire payload.
func BookingEvent(rec model.BookingRecord) queue.BookingConfirmedEvent {
	return queue.BookingConfirmedEvent{
		BookingID: rec.ID,
		ChartKey:  rec.ChartKey,
		SeatIDs:   rec.SeatIDs,
		BookedAt:  rec.BookedAt.UTC().Format(time.RFC3339),
	}
}

// ExpiredEvent maps a reaped hold to its wire payload.
func ExpiredEvent(h model.ExpiredHold, at time.Time) queue.HoldExpiredEvent {
	return queue.HoldExpiredEvent{
		ChartKey:  h.ChartKey,
		TokenHash: repository.HashToken(h.Token),
		SeatIDs:   h.SeatIDs,
		ExpiredAt: at.UTC().Format(time.RFC3339),
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.resetLocked()
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.resetLocked()
		return err
	}
	return nil
}

func (p *AMQPPublisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.log.Warn("channel open failed", zap.Error(err))
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
