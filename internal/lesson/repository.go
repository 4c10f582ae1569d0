package lesson

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

// OwnerDateIndex serves the newest-first listing of an owner's lessons
var OwnerDateIndex = db.Index{
	Model:   (*Lesson)(nil),
	Name:    "lessons_owner_date_idx",
	Columns: []string{"owner_id", "date DESC", "created_at DESC"},
}

// Repository persists lessons scoped to their owner. A record owned by
// someone else is reported as ErrLessonNotFound.
type Repository interface {
	// LoadAll returns the owner's lessons newest first; empty for uuid.Nil
	LoadAll(ctx context.Context, ownerID uuid.UUID) ([]Lesson, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Lesson, error)
	Create(ctx context.Context, lesson *Lesson) (*Lesson, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (*Lesson, error)
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

func (r *repository) LoadAll(ctx context.Context, ownerID uuid.UUID) ([]Lesson, error) {
	lessons := []Lesson{}
	if ownerID == uuid.Nil {
		return lessons, nil
	}

	start := time.Now()
	err := r.db.NewSelect().
		Model(&lessons).
		Where("owner_id = ?", ownerID).
		Order("date DESC", "created_at DESC").
		Scan(ctx)

	r.metrics.Store.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if lessons == nil {
		lessons = []Lesson{}
	}
	return lessons, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Lesson, error) {
	start := time.Now()
	lesson := new(Lesson)
	err := r.db.NewSelect().
		Model(lesson).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Scan(ctx)

	r.metrics.Store.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return lesson, nil
}

func (r *repository) Create(ctx context.Context, lesson *Lesson) (*Lesson, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(lesson).Returning("*").Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "insert", "lessons", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *repository) Update(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (*Lesson, error) {
	start := time.Now()
	lesson := new(Lesson)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(lesson).
			Where("id = ?", id).
			Where("owner_id = ?", ownerID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLessonNotFound
			}
			return err
		}

		patch.Apply(lesson)

		_, err = tx.NewUpdate().
			Model(lesson).
			Column("student_name", "hourly_rate", "duration", "date", "updated_at").
			WherePK().
			Where("owner_id = ?", ownerID).
			Exec(ctx)
		return err
	})

	r.metrics.Store.RecordQuery(ctx, "update", "lessons", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *repository) Remove(ctx context.Context, ownerID, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model((*Lesson)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "delete", "lessons", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrLessonNotFound
	}
	return nil
}
