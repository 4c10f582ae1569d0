package lesson

import (
	"context"
	"log/slog"

	"tutor-service/internal/kvstore"

	"github.com/google/uuid"
)

// LocalKey is the key the lesson collection is stored under
const LocalKey = "tutor_lessons"

type localRepository struct {
	lessons *kvstore.Collection[Lesson]
}

// NewLocalRepository keeps every owner's lessons in one JSON array in store
func NewLocalRepository(store kvstore.Store, logger *slog.Logger) Repository {
	return &localRepository{
		lessons: kvstore.NewCollection[Lesson](store, LocalKey, logger),
	}
}

func (r *localRepository) LoadAll(ctx context.Context, ownerID uuid.UUID) ([]Lesson, error) {
	out := []Lesson{}
	if ownerID == uuid.Nil {
		return out, nil
	}

	all, err := r.lessons.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range all {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (r *localRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Lesson, error) {
	all, err := r.lessons.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, ownerID, id)
	if i < 0 {
		return nil, ErrLessonNotFound
	}
	return &all[i], nil
}

func (r *localRepository) Create(ctx context.Context, lesson *Lesson) (*Lesson, error) {
	err := r.lessons.Update(ctx, func(all []Lesson) ([]Lesson, error) {
		return append(all, *lesson), nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *localRepository) Update(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (*Lesson, error) {
	var updated Lesson
	err := r.lessons.Update(ctx, func(all []Lesson) ([]Lesson, error) {
		i := indexOf(all, ownerID, id)
		if i < 0 {
			return nil, ErrLessonNotFound
		}
		patch.Apply(&all[i])
		updated = all[i]
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *localRepository) Remove(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.lessons.Update(ctx, func(all []Lesson) ([]Lesson, error) {
		i := indexOf(all, ownerID, id)
		if i < 0 {
			return nil, ErrLessonNotFound
		}
		return append(all[:i], all[i+1:]...), nil
	})
}

func indexOf(all []Lesson, ownerID, id uuid.UUID) int {
	if ownerID == uuid.Nil {
		return -1
	}
	for i := range all {
		if all[i].ID == id && all[i].OwnerID == ownerID {
			return i
		}
	}
	return -1
}
