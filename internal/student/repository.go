package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tutor-service/common/metrics"
	"tutor-service/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NameIndex enforces one student name per owner, ignoring case
var NameIndex = db.Index{
	Model:   (*Student)(nil),
	Name:    "students_owner_lower_name_idx",
	Columns: []string{"owner_id", "lower(name)"},
	Unique:  true,
}

// Repository persists students scoped to their owner. Create and Update
// fail with a DuplicateNameError when the owner already has the name.
type Repository interface {
	LoadAll(ctx context.Context, ownerID uuid.UUID) ([]Student, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Student, error)
	Create(ctx context.Context, student *Student) (*Student, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (*Student, error)
	Remove(ctx context.Context, ownerID, id uuid.UUID) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) LoadAll(ctx context.Context, ownerID uuid.UUID) ([]Student, error) {
	students := []Student{}
	if ownerID == uuid.Nil {
		return students, nil
	}

	start := time.Now()
	err := r.db.NewSelect().
		Model(&students).
		Where("owner_id = ?", ownerID).
		OrderExpr("lower(name) ASC").
		Scan(ctx)

	r.metrics.Store.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().
		Model(student).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Scan(ctx)

	r.metrics.Store.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func (r *repository) Create(ctx context.Context, student *Student) (*Student, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(student).Returning("*").Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "insert", "students", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, &DuplicateNameError{Name: student.Name}
		}
		return nil, err
	}
	return student, nil
}

func (r *repository) Update(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (*Student, error) {
	start := time.Now()
	student := new(Student)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(student).
			Where("id = ?", id).
			Where("owner_id = ?", ownerID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrStudentNotFound
			}
			return err
		}

		patch.Apply(student)

		_, err = tx.NewUpdate().
			Model(student).
			Column("name", "hourly_rate", "email", "phone", "notes", "updated_at").
			WherePK().
			Where("owner_id = ?", ownerID).
			Exec(ctx)
		if db.IsUniqueViolation(err) {
			return &DuplicateNameError{Name: student.Name}
		}
		return err
	})

	r.metrics.Store.RecordQuery(ctx, "update", "students", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return student, nil
}

func (r *repository) Remove(ctx context.Context, ownerID, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model((*Student)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "delete", "students", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}
