// Package queue implements the durable `discovery` queue consumer and
// cascade publisher, following original_source/worker/consumer.py's
// connect_to_rabbitmq/enqueue_discovery/trigger_discover_all, using
// github.com/rabbitmq/amqp091-go as the AMQP 0-9-1 client.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/pkg/logger"
)

const (
	QueueName = "discovery"

	heartbeatSeconds           = 600
	blockedConnectionTimeout   = 300 * time.Second
	initialBackoff             = 1 * time.Second
	maxBackoff                 = 30 * time.Second
	publisherMaxRetries        = 3
	consumerMaxRetries         = 0 // 0 = infinite, matching the source's max_retries=0 contract.
	transportFailureSleep      = 5 * time.Second
	otherExceptionSleep        = 10 * time.Second
)

// JobHandler processes one decoded discovery job; its return value
// determines only logging, never ack/nack — acknowledgement happens
// unconditionally after the handler returns, since a handled per-device
// error is still a successfully processed job.
type JobHandler func(ctx context.Context, job domain.DiscoveryJob) error

// Connection owns a single AMQP connection/channel pair and implements
// both the long-lived consumer loop and the cascade/child-job publisher.
type Connection struct {
	url string
	log *logger.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker with a 600s heartbeat, retrying with
// exponential backoff doubling from 1s capped at 30s. maxRetries=0 means
// infinite attempts (the main consumer's contract); a positive value
// bounds publisher-path retries.
func Dial(ctx context.Context, url string, maxRetries int, log *logger.Logger) (*Connection, error) {
	backoff := initialBackoff
	attempt := 0
	for {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: heartbeatSeconds * time.Second,
			Locale:    "en_US",
		})
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr == nil {
				if _, qErr := ch.QueueDeclare(QueueName, true, false, false, false, nil); qErr == nil {
					watchBlocked(conn, log)
					return &Connection{url: url, log: log, conn: conn, ch: ch}, nil
				} else {
					err = qErr
				}
			} else {
				err = chErr
			}
			conn.Close()
		}

		attempt++
		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("queue: dial failed after %d attempts: %w", attempt, err)
		}
		log.WithError(err).Warn("broker dial failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// watchBlocked enforces the blocked-connection timeout pika applies
// client-side: amqp091-go only forwards the server's connection.blocked/
// unblocked notifications, it does not close the connection on our
// behalf, so a goroutine here starts a timer on block and force-closes
// the connection if it is still blocked once blockedConnectionTimeout
// elapses, matching pika's blocked_connection_timeout=300 behavior. The
// forced close surfaces through NotifyClose in consumeUntilError, which
// triggers the normal reconnect-with-backoff path.
func watchBlocked(conn *amqp.Connection, log *logger.Logger) {
	notifications := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	go func() {
		var timer *time.Timer
		for b := range notifications {
			if b.Active {
				log.Warn("broker connection blocked", "reason", b.Reason)
				timer = time.AfterFunc(blockedConnectionTimeout, func() {
					log.Error("connection blocked past timeout, closing")
					conn.Close()
				})
			} else if timer != nil {
				timer.Stop()
				log.Info("broker connection unblocked")
			}
		}
	}()
}

func (c *Connection) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Enqueue publishes one discovery job, satisfying orchestrator.Enqueuer.
func (c *Connection) Enqueue(ctx context.Context, job domain.DiscoveryJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	return c.ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Run is the long-lived consumer loop: it subscribes to the durable
// discovery queue, decodes each message, dispatches type="discovery"
// messages to handler, and acks after the handler returns (success or
// handled error). Unknown types are silently ignored and acked.
// Unhandled transport failures (connection errors, broker-initiated
// closes, stream loss) sleep 5s and reconnect; any other exception sleeps
// 10s and restarts the loop.
func Run(ctx context.Context, url string, prefetch int, handler JobHandler, log *logger.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := Dial(ctx, url, consumerMaxRetries, log)
		if err != nil {
			return fmt.Errorf("queue: consumer dial: %w", err)
		}

		err = conn.consumeUntilError(ctx, prefetch, handler, log)
		conn.Close()

		if err == nil || err == ctx.Err() {
			return err
		}

		log.WithError(err).Error("consumer loop exited, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(transportFailureSleep):
		}
	}
}

func (c *Connection) consumeUntilError(ctx context.Context, prefetch int, handler JobHandler, log *logger.Logger) error {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("queue: set qos: %w", err)
	}

	deliveries, err := c.ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue: consume: %w", err)
	}

	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return fmt.Errorf("queue: connection closed")
			}
			return fmt.Errorf("queue: connection closed: %w", amqpErr)
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("queue: delivery channel closed")
			}
			c.handleDelivery(ctx, delivery, handler, log)
		}
	}
}

// handleDelivery decodes and dispatches one message inline in the
// consumer goroutine: the handler runs to completion before the next
// delivery is read, so prefetch controls real in-flight concurrency
// rather than a separate worker pool.
func (c *Connection) handleDelivery(ctx context.Context, delivery amqp.Delivery, handler JobHandler, log *logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic handling delivery, sleeping before continuing", "recovered", r)
			time.Sleep(otherExceptionSleep)
		}
	}()

	var job domain.DiscoveryJob
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		log.WithError(err).Warn("malformed job message, acking and discarding")
		delivery.Ack(false)
		return
	}

	if job.Type != "discovery" {
		delivery.Ack(false)
		return
	}

	if err := handler(ctx, job); err != nil {
		log.WithError(err).Error("job handler returned an error")
	}
	delivery.Ack(false)
}
