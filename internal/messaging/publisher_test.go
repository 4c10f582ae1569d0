package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tutor-service/common/logger"
	"tutor-service/common/metrics"
	"tutor-service/internal/config"
	"tutor-service/internal/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Driver() string { return "recording" }
func (p *recordingPublisher) Close() error   { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// stalledPublisher holds every Publish until release is closed
type stalledPublisher struct {
	recordingPublisher
	release chan struct{}
	closed  bool
}

func (p *stalledPublisher) Publish(ctx context.Context, e messaging.Event) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.recordingPublisher.Publish(ctx, e)
}

func (p *stalledPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestEmitter_Emit(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := messaging.NewEmitter(pub, metrics.NewMock(), logger.Discard())

	lessonID, ownerID := uuid.New(), uuid.New()
	emitter.Emit(context.Background(), messaging.NewEvent(messaging.LessonCreated, lessonID, ownerID, map[string]string{"studentName": "Alice"}))
	require.NoError(t, emitter.Close())

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, messaging.LessonCreated, got.Type)
	assert.Equal(t, lessonID, got.EntityID)
	assert.Equal(t, ownerID, got.OwnerID)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestEmitter_SwallowsPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	emitter := messaging.NewEmitter(pub, metrics.NewMock(), logger.Discard())

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), messaging.NewEvent(messaging.StudentDeleted, uuid.New(), uuid.New(), nil))
	})
	require.NoError(t, emitter.Close())
	assert.Len(t, pub.events, 1)
}

func TestEmitter_DoesNotWaitForBroker(t *testing.T) {
	pub := &stalledPublisher{release: make(chan struct{})}
	emitter := messaging.NewEmitterWithQueue(pub, 8, metrics.NewMock(), logger.Discard())

	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		for range 3 {
			emitter.Emit(context.Background(), messaging.NewEvent(messaging.LessonUpdated, uuid.New(), uuid.New(), nil))
		}
	}()

	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a stalled broker")
	}
	assert.Zero(t, pub.count())

	close(pub.release)
	require.NoError(t, emitter.Close())

	assert.Equal(t, 3, pub.count())
	assert.True(t, pub.closed)
}

func TestEmitter_DropsWhenQueueFull(t *testing.T) {
	pub := &stalledPublisher{release: make(chan struct{})}
	emitter := messaging.NewEmitterWithQueue(pub, 1, metrics.NewMock(), logger.Discard())

	// the worker holds at most one event and the queue one more
	for range 5 {
		emitter.Emit(context.Background(), messaging.NewEvent(messaging.StudentCreated, uuid.New(), uuid.New(), nil))
	}

	close(pub.release)
	require.NoError(t, emitter.Close())

	delivered := pub.count()
	assert.GreaterOrEqual(t, delivered, 1)
	assert.LessOrEqual(t, delivered, 2)
}

func TestEmitter_DetachesFromRequestContext(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := messaging.NewEmitter(pub, metrics.NewMock(), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	emitter.Emit(ctx, messaging.NewEvent(messaging.LessonCreated, uuid.New(), uuid.New(), nil))
	cancel()

	require.NoError(t, emitter.Close())
	assert.Equal(t, 1, pub.count())
}

func TestEmitter_EmitAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := messaging.NewEmitter(pub, metrics.NewMock(), logger.Discard())
	require.NoError(t, emitter.Close())
	require.NoError(t, emitter.Close())

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), messaging.NewEvent(messaging.LessonDeleted, uuid.New(), uuid.New(), nil))
	})
	assert.Zero(t, pub.count())
}

func TestEmitter_NilIsSafe(t *testing.T) {
	var emitter *messaging.Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), messaging.NewEvent(messaging.LessonDeleted, uuid.New(), uuid.New(), nil))
	})
	assert.NoError(t, emitter.Close())
}

func TestNew_FallsBackToNoop(t *testing.T) {
	p := messaging.New(config.EventsConfig{Driver: config.EventsDriverNone}, logger.Discard())
	assert.Equal(t, "none", p.Driver())

	// nothing listens on this port
	p = messaging.New(config.EventsConfig{
		Driver: config.EventsDriverNATS,
		NATS:   config.NATSConfig{URL: "nats://127.0.0.1:1", Subject: "tutor.events"},
	}, logger.Discard())
	assert.Equal(t, "none", p.Driver())
}
