package mq

import (
	"context"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Upload incidents flow exchange -> queue. Retries park in the retry queue
// until their per-message TTL dead-letters them back; exhausted ones go to the DLQ.
const (
	ExchangeIncidents = "upload.incident.exchange"
	ExchangeRetry     = "upload.incident.retry.exchange"
	ExchangeDLQ       = "upload.incident.dlq.exchange"

	QueueIncidents = "upload.incident.queue"
	QueueRetry     = "upload.incident.retry.queue"
	QueueDLQ       = "upload.incident.dlq.queue"

	RoutingIncident = "upload.incident"
	RoutingRetry    = "upload.incident.retry"
	RoutingDLQ      = "upload.incident.dlq"
)

type Client struct {
	Conn      *amqp.Connection
	Channel   *amqp.Channel
	publishMu sync.Mutex
}

var publisherMu sync.Mutex
var publisher *Client

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, Channel: ch}, nil
}

// GetPublisher returns the shared publishing client, redialing when the
// previous connection was closed.
func GetPublisher(url string) (*Client, error) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	if publisher != nil {
		if !publisher.Conn.IsClosed() && !publisher.Channel.IsClosed() {
			return publisher, nil
		}
		publisher.Close()
		publisher = nil
	}
	client, err := Dial(url)
	if err != nil {
		return nil, err
	}
	if err := client.DeclareTopology(); err != nil {
		client.Close()
		return nil, err
	}
	publisher = client
	return publisher, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

type binding struct {
	exchange string
	queue    string
	key      string
	args     amqp.Table
}

func topology() []binding {
	return []binding{
		{exchange: ExchangeIncidents, queue: QueueIncidents, key: RoutingIncident},
		{exchange: ExchangeRetry, queue: QueueRetry, key: RoutingRetry, args: amqp.Table{
			"x-dead-letter-exchange":    ExchangeIncidents,
			"x-dead-letter-routing-key": RoutingIncident,
		}},
		{exchange: ExchangeDLQ, queue: QueueDLQ, key: RoutingDLQ},
	}
}

// DeclareTopology declares the durable exchanges, queues and bindings.
func (c *Client) DeclareTopology() error {
	for _, b := range topology() {
		if err := c.Channel.ExchangeDeclare(b.exchange, "direct", true, false, false, false, nil); err != nil {
			return err
		}
		if _, err := c.Channel.QueueDeclare(b.queue, true, false, false, false, b.args); err != nil {
			return err
		}
		if err := c.Channel.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) PublishIncident(ctx context.Context, body []byte) error {
	return c.publish(ctx, ExchangeIncidents, RoutingIncident, body, "")
}

func (c *Client) PublishRetry(ctx context.Context, body []byte, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	return c.publish(ctx, ExchangeRetry, RoutingRetry, body, strconv.FormatInt(delay.Milliseconds(), 10))
}

func (c *Client) PublishDLQ(ctx context.Context, body []byte) error {
	return c.publish(ctx, ExchangeDLQ, RoutingDLQ, body, "")
}

func (c *Client) publish(ctx context.Context, exchange, key string, body []byte, expiration string) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Expiration:   expiration,
	}
	return c.Channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}
