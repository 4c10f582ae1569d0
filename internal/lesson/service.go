package lesson

import (
	"context"
	"errors"
	"time"

	"tutor-service/internal/messaging"
	"tutor-service/internal/metrics"
	"tutor-service/internal/owner"

	"github.com/google/uuid"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// Service works on the lessons of the owner carried by ctx
type Service interface {
	ListLessons(ctx context.Context) ([]Lesson, error)
	GetLesson(ctx context.Context, id uuid.UUID) (*Lesson, error)
	CreateLesson(ctx context.Context, req CreateRequest) (*Lesson, error)
	UpdateLesson(ctx context.Context, id uuid.UUID, patch Patch) (*Lesson, error)
	DeleteLesson(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo    Repository
	events  *messaging.Emitter
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, events *messaging.Emitter, m *metrics.Metrics) Service {
	return &service{
		repo:    repo,
		events:  events,
		metrics: m,
		now:     time.Now,
	}
}

// timestamp is UTC at the precision postgres keeps
func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *service) ListLessons(ctx context.Context) ([]Lesson, error) {
	return s.repo.LoadAll(ctx, owner.FromContext(ctx))
}

func (s *service) GetLesson(ctx context.Context, id uuid.UUID) (*Lesson, error) {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return nil, ErrLessonNotFound
	}
	return s.repo.Get(ctx, ownerID, id)
}

func (s *service) CreateLesson(ctx context.Context, req CreateRequest) (*Lesson, error) {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return nil, owner.ErrUnauthenticated
	}

	now := s.timestamp()
	lesson := &Lesson{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		StudentName: req.StudentName,
		HourlyRate:  req.HourlyRate,
		Duration:    req.Duration,
		Date:        req.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := lesson.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, lesson)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLessonRecorded(ctx)
	s.events.Emit(ctx, messaging.NewEvent(messaging.LessonCreated, created.ID, ownerID, created))
	return created, nil
}

func (s *service) UpdateLesson(ctx context.Context, id uuid.UUID, patch Patch) (*Lesson, error) {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return nil, owner.ErrUnauthenticated
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	patch.UpdatedAt = s.timestamp()
	updated, err := s.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLessonChanged(ctx, "update")
	s.events.Emit(ctx, messaging.NewEvent(messaging.LessonUpdated, updated.ID, ownerID, updated))
	return updated, nil
}

func (s *service) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return owner.ErrUnauthenticated
	}

	if err := s.repo.Remove(ctx, ownerID, id); err != nil {
		return err
	}

	s.metrics.RecordLessonChanged(ctx, "delete")
	s.events.Emit(ctx, messaging.NewEvent(messaging.LessonDeleted, id, ownerID, nil))
	return nil
}
