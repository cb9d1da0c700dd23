package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"

	"portfolio-analytics-api/internal/config"
)

// PortfolioEvent announces that an account's holdings changed upstream.
// Cached analytics for that account are stale once this arrives.
type PortfolioEvent struct {
	EventID   string    `json:"event_id"`
	AccountID string    `json:"account_id"`
	EventType string    `json:"event_type"` // "order.executed", "dividend.paid", "transfer"
	Timestamp time.Time `json:"timestamp"`
}

// CacheInvalidator is the part of the cache the consumer needs.
type CacheInvalidator interface {
	InvalidateAccount(ctx context.Context, accountID string) error
}

// PortfolioConsumer consumes portfolio change events and invalidates the
// affected account's cached analytics.
type PortfolioConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
	cache   CacheInvalidator
	logger  *logrus.Logger
}

// NewPortfolioConsumer connects to RabbitMQ and declares the exchange,
// queue and binding for portfolio events.
func NewPortfolioConsumer(cfg config.RabbitMQConfig, cache CacheInvalidator, logger *logrus.Logger) (*PortfolioConsumer, error) {
	url := cfg.URL
	if url == "" {
		url = fmt.Sprintf("amqp://%s:%s@%s:%d%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.VHost)
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: cfg.Heartbeat})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.PortfolioExchange, // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		cfg.PortfolioQueue, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		queue.Name,
		cfg.PortfolioRoutingKey,
		cfg.PortfolioExchange,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Infof("Portfolio event consumer initialized (queue: %s)", queue.Name)

	return &PortfolioConsumer{
		conn:    conn,
		channel: channel,
		config:  cfg,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Start consumes portfolio events in the background until ctx is cancelled.
func (c *PortfolioConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.config.PortfolioQueue, // queue
		c.config.ConsumerTag,    // consumer tag
		false,                   // auto-ack
		false,                   // exclusive
		false,                   // no-local
		false,                   // no-wait
		nil,                     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Portfolio event consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Portfolio event consumer shutting down")
				return

			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("Message channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *PortfolioConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event PortfolioEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Errorf("Failed to unmarshal portfolio event: %v", err)
		msg.Nack(false, false)
		return
	}

	if event.AccountID == "" {
		c.logger.Warn("Portfolio event without account ID, dropping")
		msg.Nack(false, false)
		return
	}

	invalidateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.cache.InvalidateAccount(invalidateCtx, event.AccountID); err != nil {
		c.logger.Errorf("Failed to invalidate cache for account %s: %v", event.AccountID, err)
		msg.Nack(false, true) // Requeue
		return
	}

	c.logger.WithFields(logrus.Fields{
		"account_id": event.AccountID,
		"event_type": event.EventType,
	}).Debug("invalidated cached analytics")

	msg.Ack(false)
}

// Close shuts down the channel and connection.
func (c *PortfolioConsumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
