package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bull/voice-agent/internal/ingest"
)

// Publisher enqueues ingestion jobs.
type Publisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewPublisher(conn *amqp.Connection, queueName string) *Publisher {
	return &Publisher{
		conn:      conn,
		queueName: queueName,
	}
}

// Publish enqueues req as a persistent message and returns the job id.
func (p *Publisher) Publish(ctx context.Context, req ingest.Request) (string, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return "", fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, p.queueName); err != nil {
		return "", err
	}

	job := Job{ID: uuid.NewString(), Request: req}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal ingest job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    job.ID,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return "", fmt.Errorf("publish ingest job failed: %w", err)
	}
	return job.ID, nil
}
