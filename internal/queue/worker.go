package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bull/voice-agent/internal/ingest"
)

// Ingester is the part of the ingestion pipeline the worker drives.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// Worker consumes ingestion jobs. A job that cannot be decoded or ingested is
// rejected without requeueing.
type Worker struct {
	conn      *amqp.Connection
	ingester  Ingester
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(conn *amqp.Connection, ingester Ingester, queueName string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		conn:      conn,
		ingester:  ingester,
		queueName: queueName,
		logger:    logger,
	}
}

// Start begins consuming in a background goroutine. Calling Start twice is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := declare(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Error("Ingest job failed", "message_id", d.MessageId, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("Ingest worker started", "queue", w.queueName)
	return nil
}

func (w *Worker) handle(ctx context.Context, body []byte) error {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}

	res, err := w.ingester.Ingest(ctx, job.Request)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	w.logger.Info("Ingest job done", "job_id", job.ID, "run_id", res.RunID, "chunks", res.Chunks, "embedded", res.Embedded)
	return nil
}

// Close stops consuming and waits for the in-flight job.
func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
