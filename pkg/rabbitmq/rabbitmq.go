package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Default topology. Every domain event goes to one topic exchange; the events queue is bound
// to all routing keys.
const (
	DefaultExchange = "jengamart.events"
	DefaultQueue    = "marketplace_events"
)

// Envelope wraps every published event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, declares the events exchange and binds the events queue to it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg.Exchange, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("RabbitMQ client connected, exchange %s bound to queue %s", cfg.Exchange, cfg.Queue)

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
	}, nil
}

func declareTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable (persists messages across broker restarts)
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(queue, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishEvent publishes payload under routingKey, wrapped in an Envelope.
func (c *Client) PublishEvent(routingKey string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	msg, err := newPublishing(routingKey, payload, time.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish(
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	log.Printf(" [x] Sent %s event", routingKey)
	return nil
}

func newPublishing(routingKey string, payload interface{}, now time.Time) (amqp.Publishing, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s payload: %w", routingKey, err)
	}
	body, err := json.Marshal(Envelope{Type: routingKey, OccurredAt: now.UTC(), Data: data})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s envelope: %w", routingKey, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         routingKey,
		Body:         body,
		DeliveryMode: amqp.Persistent, // Make message persistent
		Timestamp:    now,
	}, nil
}

// ConsumeEvents starts a goroutine that hands every event on the queue to handler. A handler
// error requeues the message once; a message that fails after redelivery is dropped.
func (c *Client) ConsumeEvents(handler func(Envelope) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack: set to false to manually acknowledge messages
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf(" [*] Waiting for events on %s", c.queue)

	go func() {
		for msg := range msgs {
			handleDelivery(msg, handler)
		}
	}()

	return nil
}

// acknowledger is the part of amqp.Delivery the consumer loop needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(msg amqp.Delivery, handler func(Envelope) error) {
	settle(&msg, msg.Body, msg.Redelivered, handler)
}

func settle(ack acknowledger, body []byte, redelivered bool, handler func(Envelope) error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("Dropping malformed event: %v", err)
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Printf("Error nacking message: %v", nackErr)
		}
		return
	}

	if err := handler(env); err != nil {
		log.Printf("Error processing %s event: %v", env.Type, err)
		if nackErr := ack.Nack(false, !redelivered); nackErr != nil {
			log.Printf("Error nacking message: %v", nackErr)
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Printf("Error acking message: %v", ackErr)
	}
}

// LogEvent is the default consumer handler: it records the event in the service log.
func LogEvent(env Envelope) error {
	log.Printf("Received %s event at %s: %s", env.Type, env.OccurredAt.Format(time.RFC3339), string(env.Data))
	return nil
}
