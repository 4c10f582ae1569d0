package account

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

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailExists     = errors.New("email already exists")
)

type Repository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, account *Account) error
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

func (r *repository) Create(ctx context.Context, account *Account) (*Account, error) {
	start := time.Now()
	account.Email = NormalizeEmail(account.Email)
	_, err := r.db.NewInsert().Model(account).Returning("*").Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "insert", "accounts", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return account, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getBy(ctx, "email = ?", NormalizeEmail(email))
}

func (r *repository) getBy(ctx context.Context, query string, arg any) (*Account, error) {
	start := time.Now()
	account := new(Account)
	err := r.db.NewSelect().
		Model(account).
		Where(query, arg).
		Scan(ctx)

	r.metrics.Store.RecordQuery(ctx, "select", "accounts", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (r *repository) Update(ctx context.Context, account *Account) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(account).
		Column("name", "currency", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "update", "accounts", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
