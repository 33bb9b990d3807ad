package worker

import (
	"CloudHunter/config"
	"CloudHunter/internal/mq"
	"CloudHunter/internal/task"
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type dlqMessage struct {
	Message  task.IncidentMessage `json:"message"`
	Error    string               `json:"error"`
	FailedAt time.Time            `json:"failed_at"`
}

// retryPublisher is the part of mq.Client used to reschedule or bury a message.
type retryPublisher interface {
	PublishRetry(ctx context.Context, body []byte, delay time.Duration) error
	PublishDLQ(ctx context.Context, body []byte) error
}

type retryPolicy struct {
	max    int
	delays []time.Duration
}

func newLimiter(r float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if r <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

// RunIncidentWorker consumes upload incidents from RabbitMQ and stores them.
func RunIncidentWorker(ctx context.Context, db *gorm.DB, cfg config.Config) error {
	client, err := mq.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := cfg.RabbitMQPrefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(mq.QueueIncidents, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	concurrency := cfg.IncidentConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	limiter := newLimiter(cfg.IncidentRate, cfg.IncidentBurst)
	policy := retryPolicy{max: cfg.IncidentRetryMax, delays: cfg.IncidentRetryDelays}

	for {
		select {
		case <-ctx.Done():
			waitIdle(sem)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				waitIdle(sem)
				return errors.New("incident worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleIncidentMessage(ctx, db, client, limiter, policy, d)
			}(d)
		}
	}
}

// waitIdle blocks until every in-flight handler has released its slot, so
// nothing acks on a channel the caller is about to close.
func waitIdle(sem chan struct{}) {
	for i := 0; i < cap(sem); i++ {
		sem <- struct{}{}
	}
}

func handleIncidentMessage(ctx context.Context, db *gorm.DB, pub retryPublisher, limiter *rate.Limiter, policy retryPolicy, d amqp.Delivery) {
	var msg task.IncidentMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Printf("incident worker: invalid message: %v", err)
		_ = d.Ack(false)
		return
	}

	if err := limiter.Wait(ctx); err != nil {
		_ = d.Nack(false, true)
		return
	}

	if err := task.ProcessIncident(ctx, db, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = d.Nack(false, true)
			return
		}
		var handleErr error
		if shouldRetry(err) {
			handleErr = scheduleRetry(ctx, pub, policy, msg, err)
		} else {
			handleErr = markFailed(ctx, pub, msg, err)
		}
		if handleErr != nil {
			log.Printf("incident worker: requeue %s: %v", msg.Incident.EventID, handleErr)
			_ = d.Nack(false, true)
			return
		}
	}
	_ = d.Ack(false)
}

func shouldRetry(err error) bool {
	if errors.Is(err, task.ErrInvalidIncident) || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	return true
}

func scheduleRetry(ctx context.Context, pub retryPublisher, policy retryPolicy, msg task.IncidentMessage, procErr error) error {
	next := msg.Attempt + 1
	if policy.max <= 0 || next > policy.max {
		return markFailed(ctx, pub, msg, procErr)
	}
	delay := pickRetryDelay(next, policy.delays)
	msg.Attempt = next
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	log.Printf("incident worker: retry %s attempt=%d in %s: %v", msg.Incident.EventID, next, delay, procErr)
	return pub.PublishRetry(ctx, body, delay)
}

func markFailed(ctx context.Context, pub retryPublisher, msg task.IncidentMessage, procErr error) error {
	body, err := json.Marshal(dlqMessage{Message: msg, Error: procErr.Error(), FailedAt: time.Now()})
	if err != nil {
		return err
	}
	if err := pub.PublishDLQ(ctx, body); err != nil {
		log.Printf("incident worker: dlq publish failed: %v", err)
	}
	return nil
}

func pickRetryDelay(attempt int, delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	index := attempt - 1
	if index < 0 {
		index = 0
	}
	if index >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[index]
}
