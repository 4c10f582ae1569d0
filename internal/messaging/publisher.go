package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tutor-service/common/metrics"
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Driver() string
	Close() error
}

// Noop drops every event
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Driver() string                       { return "none" }
func (Noop) Close() error                         { return nil }

const (
	// DefaultQueueSize bounds the events waiting for the broker
	DefaultQueueSize = 256

	publishTimeout = 10 * time.Second
)

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// Emitter publishes change events on behalf of services.
// Events are queued and delivered by a single worker, so a slow broker never holds up a request.
// Failures and drops are logged and counted, never returned: the change is already committed.
type Emitter struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEvent
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func NewEmitter(publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *Emitter {
	return NewEmitterWithQueue(publisher, DefaultQueueSize, m, logger)
}

func NewEmitterWithQueue(publisher Publisher, size int, m *metrics.Metrics, logger *slog.Logger) *Emitter {
	if publisher == nil {
		publisher = Noop{}
	}
	if size < 1 {
		size = 1
	}

	e := &Emitter{
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		queue:     make(chan queuedEvent, size),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues event without waiting for the broker. A full queue drops the event.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.drop(ctx, event, "emitter closed")
		return
	}

	select {
	case e.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		e.drop(ctx, event, "queue full")
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for q := range e.queue {
		e.publish(q.ctx, q.event)
	}
}

func (e *Emitter) publish(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err := e.publisher.Publish(ctx, event)
	if e.metrics != nil {
		e.metrics.Events.RecordPublish(ctx, e.publisher.Driver(), string(event.Type), time.Since(start), err)
	}
	if err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "failed to publish event",
			"type", event.Type,
			"entity_id", event.EntityID,
			"driver", e.publisher.Driver(),
			"error", err,
		)
	}
}

func (e *Emitter) drop(ctx context.Context, event Event, reason string) {
	if e.metrics != nil {
		e.metrics.Events.RecordDropped(ctx, e.publisher.Driver(), string(event.Type))
	}
	if e.logger != nil {
		e.logger.WarnContext(ctx, "dropped event",
			"type", event.Type,
			"entity_id", event.EntityID,
			"driver", e.publisher.Driver(),
			"reason", reason,
		)
	}
}

// Close stops accepting events, delivers what is queued, then closes the publisher.
// It is safe to call more than once.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}

	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.queue)
		e.mu.Unlock()

		<-e.done
		e.closeErr = e.publisher.Close()
	})
	return e.closeErr
}
