package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tutor-service/internal/account"
	"tutor-service/internal/currency"
	"tutor-service/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

type Options struct {
	RefreshTTL      time.Duration
	DefaultCurrency currency.Code
}

type Service struct {
	authRepo *Repository
	accounts account.Repository
	tokens   *Tokens
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(authRepo *Repository, accounts account.Repository, tokens *Tokens, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = currency.Default
	}
	return &Service{
		authRepo: authRepo,
		accounts: accounts,
		tokens:   tokens,
		opts:     opts,
		metrics:  m,
		logger:   logger,
	}
}

// Register creates a new account and signs it in
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	code := s.opts.DefaultCurrency
	if strings.TrimSpace(req.Currency) != "" {
		parsed, err := currency.Parse(req.Currency)
		if err != nil {
			return nil, err
		}
		code = parsed
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.accounts.Create(ctx, &account.Account{
		ID:       uuid.New(),
		Email:    req.Email,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(req.Name),
		Currency: code,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAccountCreated(ctx)
	return s.generateTokenPair(ctx, created)
}

// Login authenticates an account and returns tokens
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	acc, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, acc)
}

// RefreshAccessToken rotates the refresh token and issues a new access token
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	consumed, err := s.authRepo.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, consumed.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	return s.generateTokenPair(ctx, acc)
}

// Logout invalidates refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.authRepo.DeleteRefreshToken(ctx, refreshToken)
}

// LogoutAll invalidates all refresh tokens for an account
func (s *Service) LogoutAll(ctx context.Context, accountID uuid.UUID) error {
	return s.authRepo.DeleteAllAccountTokens(ctx, accountID)
}

// PurgeExpired runs until ctx is done, deleting expired refresh tokens every interval
func (s *Service) PurgeExpired(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.authRepo.DeleteExpiredTokens(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to purge expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

func (s *Service) generateTokenPair(ctx context.Context, acc *account.Account) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(acc.ID, acc.Email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.opts.RefreshTTL)
	if err := s.authRepo.CreateRefreshToken(ctx, acc.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      acc,
	}, nil
}
