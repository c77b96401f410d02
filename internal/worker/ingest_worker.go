package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"kbchat/internal/model"
)

// IngestionStarter is the slice of the knowledge-base backend the worker
// needs.
type IngestionStarter interface {
	StartIngestionJob(ctx context.Context, knowledgeBaseID, dataSourceID, clientToken string) (string, error)
}

// IngestWorker drains queued ingestion triggers and starts the backend
// re-indexing job for each. A failed start is nacked without requeue: the
// index stays stale until the next mutating event publishes a new trigger,
// which matches the best-effort contract of the queue.
type IngestWorker struct {
	conn      *amqp.Connection
	backend   IngestionStarter
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, backend IngestionStarter, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		backend:   backend,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
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

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
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

				var job model.IngestJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode ingest job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				jobID, err := w.backend.StartIngestionJob(workerCtx, job.KnowledgeBaseID, job.DataSourceID, job.ClientToken)
				if err != nil {
					log.Printf("worker start ingestion job failed (reason=%s): %v", job.Reason, err)
					_ = d.Nack(false, false)
					continue
				}

				log.Printf("ingestion job %s started (reason=%s)", jobID, job.Reason)
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
