// Package queue carries ingestion requests over RabbitMQ so that large
// documents can be ingested outside the request that submitted them.
package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bull/voice-agent/internal/config"
	"github.com/bull/voice-agent/internal/ingest"
)

// Job is the message body of an ingestion request.
type Job struct {
	ID      string         `json:"id"`
	Request ingest.Request `json:"request"`
}

// Dial connects to the broker and checks that a channel can be opened.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: RABBITMQ_URL not set", config.ErrConfiguration)
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	_ = ch.Close()
	return conn, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s failed: %w", queue, err)
	}
	return nil
}
