package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is an in-memory buffer of batches handed to subscribers by a single
// worker goroutine.
type Queue[T any] struct {
	items    chan []T
	drained  chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]T) error
}

// New creates a queue holding at most bufferSize batches.
func New[T any](bufferSize int, logger *logrus.Logger) *Queue[T] {
	if logger == nil {
		logger = logrus.New()
	}
	return &Queue[T]{
		items:   make(chan []T, bufferSize),
		drained: make(chan struct{}),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a batch without blocking.
func (q *Queue[T]) Push(batch []T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler called for every batch. Handlers added after
// Start only see later batches.
func (q *Queue[T]) Subscribe(handler func([]T) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

func (q *Queue[T]) Start() {
	go q.process()
}

func (q *Queue[T]) process() {
	defer close(q.drained)
	for batch := range q.items {
		q.processBatch(batch)
	}
}

func (q *Queue[T]) processBatch(batch []T) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close rejects new batches. Batches already queued are still handled;
// Wait blocks until they are.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}

// Wait blocks until a started queue has been closed and drained.
func (q *Queue[T]) Wait() {
	<-q.drained
}

// Len returns the number of batches waiting.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
