package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tutor-service/internal/currency"
	"tutor-service/internal/owner"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

type Service interface {
	Profile(ctx context.Context) (*Account, error)
	UpdateProfile(ctx context.Context, req UpdateRequest) (*Account, error)
	// Currency is the display currency of the acting account, or the fallback
	Currency(ctx context.Context) currency.Code
}

type service struct {
	repo     Repository
	fallback currency.Code
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, fallback currency.Code, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) Profile(ctx context.Context) (*Account, error) {
	id := owner.FromContext(ctx)
	if id == uuid.Nil {
		return nil, owner.ErrUnauthenticated
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, req UpdateRequest) (*Account, error) {
	account, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		account.Name = name
	}
	if req.Currency != nil {
		code, err := currency.Parse(*req.Currency)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		account.Currency = code
	}

	account.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) Currency(ctx context.Context) currency.Code {
	account, err := s.Profile(ctx)
	if err != nil {
		if !errors.Is(err, owner.ErrUnauthenticated) {
			s.logger.WarnContext(ctx, "falling back to default currency", "error", err)
		}
		return s.fallback
	}
	if !account.Currency.Valid() {
		return s.fallback
	}
	return account.Currency
}
