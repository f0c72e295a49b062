package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"housingadmin/console/internal/database"
	"housingadmin/console/internal/queue"
)

// Store persists batches of skipped uploads.
type Store interface {
	SaveUploadFailures(ctx context.Context, batch []database.UploadFailure) error
}

type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

// FailureWriter records skipped uploads off the request path. Records go
// through the queue and are written in batches with retries.
type FailureWriter struct {
	store   Store
	queue   *queue.Queue[database.UploadFailure]
	opts    Options
	logger  *logrus.Logger
	now     func() time.Time
	mu      sync.Mutex
	started bool
}

func NewFailureWriter(store Store, q *queue.Queue[database.UploadFailure], opts Options, logger *logrus.Logger) *FailureWriter {
	if logger == nil {
		logger = logrus.New()
	}
	return &FailureWriter{
		store:  store,
		queue:  q,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Start subscribes to the queue and starts its worker.
func (w *FailureWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.queue.Subscribe(func(batch []database.UploadFailure) error {
		return w.processBatch(batch)
	})
	w.queue.Start()
}

// Stop closes the queue and waits for queued records to be written.
func (w *FailureWriter) Stop() {
	_ = w.queue.Close()
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		w.queue.Wait()
	}
}

// RecordUploadFailure queues one record. A full or closed queue falls back
// to a direct write so nothing is lost.
func (w *FailureWriter) RecordUploadFailure(ctx context.Context, resource, file, reason string) error {
	batch := []database.UploadFailure{{
		Resource:  resource,
		File:      file,
		Reason:    reason,
		CreatedAt: w.now(),
	}}
	err := w.queue.Push(batch)
	if err == nil {
		return nil
	}
	w.logger.WithError(err).WithField("file", file).Warn("Writing upload failure directly")
	return w.store.SaveUploadFailures(ctx, batch)
}

func (w *FailureWriter) processBatch(batch []database.UploadFailure) error {
	var err error
	for attempt := 0; attempt <= w.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			w.logger.Infof("Retrying upload failure batch, attempt %d of %d", attempt, w.opts.MaxRetries)
			time.Sleep(w.opts.RetryDelay)
		}

		err = w.store.SaveUploadFailures(context.Background(), batch)
		if err == nil {
			w.logger.WithField("batch_size", len(batch)).Debug("Saved upload failures")
			return nil
		}
		w.logger.WithError(err).Error("Saving upload failures failed")
	}
	return fmt.Errorf("failed to process batch after %d attempts: %w", w.opts.MaxRetries+1, err)
}
