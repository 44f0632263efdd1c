package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hydramind/config"
	"hydramind/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQService publishes dashboard snapshots to a topic exchange
type RabbitMQService struct {
	config    *config.Config
	logger    *zap.Logger
	mu        sync.RWMutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	isClosing bool
	dial      retryPolicy
}

// NewRabbitMQService connects and declares the exchange
func NewRabbitMQService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RabbitMQService, error) {
	service := &RabbitMQService{
		config: cfg,
		logger: logger,
		dial:   retryPolicy{attempts: 5, step: 2 * time.Second},
	}

	if err := service.connect(ctx); err != nil {
		return nil, err
	}

	return service, nil
}

// connect dials the broker, opens a channel and declares the exchange
func (r *RabbitMQService) connect(ctx context.Context) error {
	r.logger.Info("Connecting to RabbitMQ", zap.String("exchange", r.config.RabbitMQExchange))

	var conn *amqp.Connection
	err := r.dial.do(ctx, r.logger, "RabbitMQ dial", func(context.Context) error {
		var err error
		conn, err = amqp.Dial(r.config.RabbitMQURL)
		return err
	})
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		r.config.RabbitMQExchange, // name
		"topic",                   // type
		true,                      // durable
		false,                     // auto-deleted
		false,                     // internal
		false,                     // no-wait
		nil,                       // arguments
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.channel = channel
	r.mu.Unlock()

	r.logger.Info("Connected to RabbitMQ",
		zap.String("exchange", r.config.RabbitMQExchange),
		zap.String("routing_key", r.config.RabbitMQRoutingKey))

	go r.watch(conn)

	return nil
}

// watch reconnects when the broker drops conn. Publishes fail while the
// channel is down; the fan-out counts them as sink errors.
func (r *RabbitMQService) watch(conn *amqp.Connection) {
	closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))

	r.mu.Lock()
	closing := r.isClosing
	if !closing {
		r.channel = nil
	}
	r.mu.Unlock()
	if closing {
		return
	}

	r.logger.Error("RabbitMQ connection lost", zap.Error(closeErr))

	for {
		err := r.connect(context.Background())
		if err == nil {
			return
		}
		r.mu.RLock()
		stopped := r.isClosing
		r.mu.RUnlock()
		if stopped {
			return
		}
		r.logger.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
		time.Sleep(5 * time.Second)
	}
}

func (r *RabbitMQService) Name() string {
	return "rabbitmq"
}

// Publish sends the snapshot as a persistent JSON message. Alerting snapshots
// use the routing key suffix ".alert" so consumers can bind to them alone.
// Sequence numbers restart with the process, so the message id is a UUID and
// the sequence travels in the "seq" header.
func (r *RabbitMQService) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	r.mu.RLock()
	channel := r.channel
	r.mu.RUnlock()
	if channel == nil {
		return errors.New("rabbitmq channel not open")
	}

	key := routingKey(r.config.RabbitMQRoutingKey, snapshot)
	err = channel.PublishWithContext(ctx,
		r.config.RabbitMQExchange, // exchange
		key,                       // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    snapshot.UpdatedAt,
			MessageId:    uuid.New().String(),
			Headers:      amqp.Table{"seq": int64(snapshot.Seq)},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	r.logger.Debug("Published snapshot to RabbitMQ",
		zap.Uint64("seq", snapshot.Seq),
		zap.String("routing_key", key))
	return nil
}

func routingKey(base string, snapshot *models.Snapshot) string {
	switch {
	case snapshot.Cause == models.CauseOffline:
		return base + ".offline"
	case snapshot.Alert:
		return base + ".alert"
	default:
		return base + ".normal"
	}
}

// Close gracefully closes RabbitMQ connection
func (r *RabbitMQService) Close() error {
	r.mu.Lock()
	r.isClosing = true
	channel, conn := r.channel, r.conn
	r.mu.Unlock()

	r.logger.Info("Closing RabbitMQ connection")

	if channel != nil {
		if err := channel.Close(); err != nil {
			r.logger.Error("Error closing channel", zap.Error(err))
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			r.logger.Error("Error closing connection", zap.Error(err))
			return err
		}
	}

	r.logger.Info("RabbitMQ connection closed")
	return nil
}
