package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"savora/internal/model"
	"savora/internal/platform/rabbitmq"
)

type ImageDeleter interface {
	Delete(ctx context.Context, path string) error
}

var errMalformedJob = errors.New("malformed cleanup job")

type ImageCleanupWorker struct {
	conn      *amqp.Connection
	images    ImageDeleter
	queueName string
	log       logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewImageCleanupWorker(conn *amqp.Connection, images ImageDeleter, queueName string, log logrus.FieldLogger) *ImageCleanupWorker {
	return &ImageCleanupWorker{
		conn:      conn,
		images:    images,
		queueName: queueName,
		log:       log.WithField("component", "image_cleanup_worker"),
	}
}

func (w *ImageCleanupWorker) Start(ctx context.Context) error {
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

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
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
				w.process(workerCtx, d)
			}
		}
	}()

	w.log.WithField("queue", w.queueName).Info("image cleanup worker started")
	return nil
}

func (w *ImageCleanupWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *ImageCleanupWorker) process(ctx context.Context, d amqp.Delivery) {
	err := w.handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformedJob):
		w.log.WithError(err).Warn("dropping cleanup job")
		_ = d.Nack(false, false)
	default:
		// Requeue once; a redelivered job that fails again is dropped.
		w.log.WithError(err).WithField("redelivered", d.Redelivered).Warn("cleanup job failed")
		_ = d.Nack(false, !d.Redelivered)
	}
}

// handle deletes every path of the job and returns the first failure after
// trying all of them.
func (w *ImageCleanupWorker) handle(ctx context.Context, body []byte) error {
	var job model.ImageCleanupJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", errMalformedJob, err)
	}

	var firstErr error
	for _, path := range job.Paths {
		if path == "" {
			continue
		}
		if err := w.images.Delete(ctx, path); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{"path": path, "reason": job.Reason}).Warn("delete image failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		w.log.WithFields(logrus.Fields{"path": path, "reason": job.Reason}).Debug("image deleted")
	}
	return firstErr
}
