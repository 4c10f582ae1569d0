package student

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutor-service/internal/messaging"
	"tutor-service/internal/metrics"
	"tutor-service/internal/owner"

	"github.com/google/uuid"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateName   = errors.New("duplicate student name")
)

// DuplicateNameError matches ErrDuplicateName and carries the rejected name
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("Student with name %q already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

type Service interface {
	// ListStudents returns the owner's students by name; query filters by name substring
	ListStudents(ctx context.Context, query string) ([]Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (*Student, error)
	CreateStudent(ctx context.Context, req CreateRequest) (*Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, patch Patch) (*Student, error)
	DeleteStudent(ctx context.Context, id uuid.UUID) error
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

func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *service) ListStudents(ctx context.Context, query string) ([]Student, error) {
	students, err := s.repo.LoadAll(ctx, owner.FromContext(ctx))
	if err != nil {
		return nil, err
	}
	return Filter(students, query), nil
}

func (s *service) GetStudent(ctx context.Context, id uuid.UUID) (*Student, error) {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return nil, ErrStudentNotFound
	}
	return s.repo.Get(ctx, ownerID, id)
}

func (s *service) CreateStudent(ctx context.Context, req CreateRequest) (*Student, error) {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return nil, owner.ErrUnauthenticated
	}

	now := s.timestamp()
	student := &Student{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Name:       req.Name,
		HourlyRate: req.HourlyRate,
		Email:      req.Email,
		Phone:      req.Phone,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := student.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, student)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			s.metrics.RecordDuplicateName(ctx)
		}
		return nil, err
	}

	s.metrics.RecordStudentAdded(ctx)
	s.events.Emit(ctx, messaging.NewEvent(messaging.StudentCreated, created.ID, ownerID, created))
	return created, nil
}

func (s *service) UpdateStudent(ctx context.Context, id uuid.UUID, patch Patch) (*Student, error) {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return nil, owner.ErrUnauthenticated
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	patch.UpdatedAt = s.timestamp()
	updated, err := s.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			s.metrics.RecordDuplicateName(ctx)
		}
		return nil, err
	}

	s.metrics.RecordStudentChanged(ctx, "update")
	s.events.Emit(ctx, messaging.NewEvent(messaging.StudentUpdated, updated.ID, ownerID, updated))
	return updated, nil
}

func (s *service) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	ownerID := owner.FromContext(ctx)
	if ownerID == uuid.Nil {
		return owner.ErrUnauthenticated
	}

	if err := s.repo.Remove(ctx, ownerID, id); err != nil {
		return err
	}

	s.metrics.RecordStudentChanged(ctx, "delete")
	s.events.Emit(ctx, messaging.NewEvent(messaging.StudentDeleted, id, ownerID, nil))
	return nil
}
