// Package rabbitmq forwards bridge events to an AMQP quorum queue so relay
// operators and indexers can consume them off-process.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/config"
	"github.com/scalarorg/bridge-core/pkg/events"
)

type Client struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      amqp.Queue
	routingKey string
}

func NewClient(cfg *config.RabbitMQConfig) (*Client, error) {
	connectionString := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		strconv.Itoa(cfg.Port))

	conn, err := amqp.Dial(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	args := amqp.Table{
		"x-queue-type":              "quorum",
		"x-dead-letter-exchange":    "common_dlx",
		"x-dead-letter-routing-key": cfg.RoutingKey,
	}

	q, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &Client{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: cfg.RoutingKey,
	}, nil
}

// Publish sends one event envelope as a persistent JSON message.
func (c *Client) Publish(ctx context.Context, envelope *events.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = c.channel.PublishWithContext(ctx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         envelope.Topic,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	log.Debug().Str("topic", envelope.Topic).Msg("[RabbitMQ] published event")
	return nil
}

// Pump forwards every event from the channel until it closes or the context
// is cancelled.
func (c *Client) Pump(ctx context.Context, ch <-chan *events.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-ch:
			if !ok {
				return
			}
			if err := c.Publish(ctx, envelope); err != nil {
				log.Error().Err(err).Str("topic", envelope.Topic).Msg("[RabbitMQ] failed to publish event")
			}
		}
	}
}

func (c *Client) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
