package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/infrastructure/messaging/rabbitmq"
)

var processedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "uploads_processed_total",
		Help:      "Total number of image process messages handled by the worker",
	},
	[]string{"outcome"}, // ok, requeued, dropped
)

// Processor is the piece of the media service the worker drives.
type Processor interface {
	ProcessImage(ctx context.Context, uploadID string) error
}

// Consumer pulls process-image messages off the queue one at a time and runs
// the resize pipeline.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	queue     string
	processor Processor
	log       zerolog.Logger
}

func NewConsumer(url, exchange, queue string, processor Processor, log zerolog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if exchange == "" {
		exchange = rabbitmq.DefaultExchange
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true, false, false, false, nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true, false, false, false, nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	if err := ch.QueueBind(q.Name, rabbitmq.KeyProcessImage, exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	// One unacked message at a time: resizing is CPU and memory heavy.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queue:     q.Name,
		processor: processor,
		log:       log,
	}, nil
}

// Run consumes until the context ends or the channel dies.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.log.Info().Str("queue", c.queue).Msg("worker consuming")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var evt media.ProcessImageEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		c.log.Error().Err(err).Msg("malformed process message dropped")
		processedTotal.WithLabelValues("dropped").Inc()
		_ = msg.Nack(false, false)
		return
	}

	log := c.log.With().Str("upload_id", evt.UploadID).Str("purpose", evt.Purpose).Logger()

	err := c.processor.ProcessImage(ctx, evt.UploadID)
	switch Decide(err, msg.Redelivered) {
	case Ack:
		if err == nil {
			log.Info().Msg("upload processed")
		}
		processedTotal.WithLabelValues("ok").Inc()
		_ = msg.Ack(false)
	case Requeue:
		log.Warn().Err(err).Msg("transient failure, requeueing")
		processedTotal.WithLabelValues("requeued").Inc()
		_ = msg.Nack(false, true)
	case Drop:
		log.Error().Err(err).Msg("failed twice, dropping message")
		processedTotal.WithLabelValues("dropped").Inc()
		_ = msg.Nack(false, false)
	}
}

// Outcome is the ack decision for one delivery.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	Drop
)

// Decide maps a processing result onto the ack policy: success acks, a first
// failure requeues, a redelivered failure is dropped so one poison upload
// cannot wedge the queue. ProcessImage marks broken input failed and returns
// nil, so only transient errors ever reach the retry path.
func Decide(err error, redelivered bool) Outcome {
	if err == nil {
		return Ack
	}
	if redelivered {
		return Drop
	}
	return Requeue
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
