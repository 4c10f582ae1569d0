package auth

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

// AccountIndex speeds up revoking every session of an account
var AccountIndex = db.Index{
	Model:   (*RefreshToken)(nil),
	Name:    "refresh_tokens_account_id_idx",
	Columns: []string{"account_id"},
}

type Repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) *Repository {
	return &Repository{
		db:      db,
		metrics: m,
	}
}

// CreateRefreshToken stores a new refresh token
func (r *Repository) CreateRefreshToken(ctx context.Context, accountID uuid.UUID, token string, expiresAt time.Time) error {
	start := time.Now()
	refreshToken := &RefreshToken{
		ID:        uuid.New(),
		AccountID: accountID,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	_, err := r.db.NewInsert().Model(refreshToken).Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "insert", "refresh_tokens", time.Since(start), err)

	return err
}

// GetRefreshToken retrieves an unexpired refresh token
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	start := time.Now()
	refreshToken := &RefreshToken{}
	err := r.db.NewSelect().
		Model(refreshToken).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)

	r.metrics.Store.RecordQuery(ctx, "select", "refresh_tokens", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	return refreshToken, nil
}

// ConsumeRefreshToken deletes an unexpired token and returns it. Only one
// caller can consume a given token, so a replayed token fails.
func (r *Repository) ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	start := time.Now()
	refreshToken := &RefreshToken{}
	result, err := r.db.NewDelete().
		Model(refreshToken).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Returning("*").
		Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrInvalidRefreshToken
	}
	return refreshToken, nil
}

// DeleteRefreshToken removes a refresh token (for logout)
func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	r.metrics.Store.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	return err
}

// DeleteExpiredTokens removes all expired refresh tokens and reports how many
func (r *Repository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("expires_at <= ?", time.Now()).
		Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteAllAccountTokens removes all refresh tokens for an account
func (r *Repository) DeleteAllAccountTokens(ctx context.Context, accountID uuid.UUID) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)

	r.metrics.Store.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	return err
}
