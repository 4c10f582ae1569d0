package student

import (
	"context"
	"log/slog"

	"tutor-service/internal/kvstore"

	"github.com/google/uuid"
)

// LocalKey is the key the student collection is stored under
const LocalKey = "tutor_students"

type localRepository struct {
	students *kvstore.Collection[Student]
}

func NewLocalRepository(store kvstore.Store, logger *slog.Logger) Repository {
	return &localRepository{
		students: kvstore.NewCollection[Student](store, LocalKey, logger),
	}
}

func (r *localRepository) LoadAll(ctx context.Context, ownerID uuid.UUID) ([]Student, error) {
	out := []Student{}
	if ownerID == uuid.Nil {
		return out, nil
	}

	all, err := r.students.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	SortByName(out)
	return out, nil
}

func (r *localRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Student, error) {
	all, err := r.students.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, ownerID, id)
	if i < 0 {
		return nil, ErrStudentNotFound
	}
	return &all[i], nil
}

func (r *localRepository) Create(ctx context.Context, student *Student) (*Student, error) {
	err := r.students.Update(ctx, func(all []Student) ([]Student, error) {
		if nameTaken(all, student.OwnerID, student.ID, student.Name) {
			return nil, &DuplicateNameError{Name: student.Name}
		}
		return append(all, *student), nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

func (r *localRepository) Update(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (*Student, error) {
	var updated Student
	err := r.students.Update(ctx, func(all []Student) ([]Student, error) {
		i := indexOf(all, ownerID, id)
		if i < 0 {
			return nil, ErrStudentNotFound
		}
		if patch.Name != nil && nameTaken(all, ownerID, id, *patch.Name) {
			return nil, &DuplicateNameError{Name: *patch.Name}
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
	return r.students.Update(ctx, func(all []Student) ([]Student, error) {
		i := indexOf(all, ownerID, id)
		if i < 0 {
			return nil, ErrStudentNotFound
		}
		return append(all[:i], all[i+1:]...), nil
	})
}

func indexOf(all []Student, ownerID, id uuid.UUID) int {
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

// nameTaken reports whether another student of ownerID (not self) already has name
func nameTaken(all []Student, ownerID, self uuid.UUID, name string) bool {
	for _, s := range all {
		if s.OwnerID == ownerID && s.ID != self && SameName(s.Name, name) {
			return true
		}
	}
	return false
}
