package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/repository"
)

// StatusUpdater moves an order to a new fulfillment status.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error)
}

// Fulfillment consumes order.paid events and starts processing the order.
type Fulfillment struct {
	url    string
	orders StatusUpdater
}

func NewFulfillment(url string, orders StatusUpdater) *Fulfillment {
	return &Fulfillment{url: url, orders: orders}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s) whenever the
// connection or the delivery channel goes away.
func (f *Fulfillment) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(f.url)
		if err != nil {
			log.Printf("fulfillment: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = f.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("fulfillment: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (f *Fulfillment) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("fulfillment: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(OrderPaidQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(OrderPaidQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := f.Handle(ctx, d.Body); err != nil {
				log.Printf("fulfillment: handle message failed: %v", err)
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one order.paid payload. An order that already moved
// past pending (a redelivery, or an admin was faster) is not an error.
func (f *Fulfillment) Handle(ctx context.Context, body []byte) error {
	var ev OrderPaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.OrderID == "" {
		return errors.New("event without order id")
	}
	o, err := f.orders.UpdateStatus(ctx, ev.OrderID, model.OrderProcessing)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			log.Printf("fulfillment: order %s already past pending, skipping", ev.OrderID)
			return nil
		}
		return fmt.Errorf("advance order %s: %w", ev.OrderID, err)
	}
	log.Printf("fulfillment: order %s paid via %s (tx=%s), now %s", o.ID, ev.Provider, ev.TransactionID, o.Status)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// PublishOrderPaid handles ev in process. It lets the mock backend run
// fulfillment without a broker.
func (f *Fulfillment) PublishOrderPaid(ctx context.Context, ev OrderPaidEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.Handle(ctx, body)
}
