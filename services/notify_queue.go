package services

import (
	"context"
	"dispatch_app_go/config"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// queueMessage is the JSON body published for every event
type queueMessage struct {
	Kind       string `json:"kind"`
	BusinessID string `json:"business_id"`
	BookingID  string `json:"booking_id,omitempty"`
	SeriesID   string `json:"series_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	Summary    string `json:"summary"`
	OccurredAt string `json:"occurred_at"`
}

// QueueChannel publishes events to a RabbitMQ topic exchange with routing
// key dispatch.<kind>, for SMS and other external delivery workers
type QueueChannel struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewQueueChannel connects to RabbitMQ. It returns nil, nil when AMQP is disabled.
func NewQueueChannel(cfg *config.Config) (*QueueChannel, error) {
	if !cfg.AMQPEnabled {
		log.Println("[NOTIFY] RabbitMQ is disabled, queue channel will not be started")
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	err = channel.ExchangeDeclare(cfg.AMQPExchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.AMQPExchange, err)
	}

	log.Printf("[NOTIFY] Publishing scheduling events to exchange %s", cfg.AMQPExchange)
	return &QueueChannel{exchange: cfg.AMQPExchange, conn: conn, channel: channel}, nil
}

func (c *QueueChannel) Name() string { return "queue" }

func (c *QueueChannel) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(queueMessage{
		Kind:       event.Kind,
		BusinessID: event.BusinessID,
		BookingID:  event.BookingID,
		SeriesID:   event.SeriesID,
		ProviderID: event.ProviderID,
		Summary:    event.Summary,
		OccurredAt: formatEventTime(event.OccurredAt),
	})
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel.PublishWithContext(ctx, c.exchange, routingKey(event.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

// Close releases the channel and connection
func (c *QueueChannel) Close() error {
	if c == nil || c.channel == nil {
		return nil
	}
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

func routingKey(kind string) string {
	return "dispatch." + kind
}
