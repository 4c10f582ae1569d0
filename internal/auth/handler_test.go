package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutor-service/common/logger"
	commonmetrics "tutor-service/common/metrics"
	"tutor-service/internal/account"
	"tutor-service/internal/auth"
	"tutor-service/internal/currency"
	"tutor-service/internal/db"
	"tutor-service/internal/metrics"
	"tutor-service/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func postJSON(router http.Handler, path string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func tokenCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	t.Fatal("token cookie should be set")
	return nil
}

func TestAuthService_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t,
		[]any{(*account.Account)(nil), (*auth.RefreshToken)(nil)},
		[]db.Index{auth.AccountIndex},
	)

	// Create handler ONCE and reuse across all subtests
	mockMetrics := commonmetrics.NewMock()
	accountRepo := account.NewRepository(pgContainer.DB, mockMetrics)
	authRepo := auth.NewRepository(pgContainer.DB, mockMetrics)
	tokens := auth.NewTokens("test-secret-key-for-testing", 15*time.Minute)
	authService := auth.NewService(authRepo, accountRepo, tokens, auth.Options{DefaultCurrency: currency.UAH}, metrics.NewMock(), logger.Discard())
	router := chi.NewRouter()
	auth.NewHandler(authService, tokens, "local", logger.Discard()).RegisterRoutes(router)

	ctx := context.Background()
	seedAccount := func(t *testing.T, email, password string) *account.Account {
		t.Helper()
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		acc, err := accountRepo.Create(ctx, &account.Account{
			ID:       uuid.New(),
			Email:    email,
			Password: string(hashedPassword),
			Name:     "Olga",
			Currency: currency.UAH,
		})
		require.NoError(t, err)
		return acc
	}
	login := func(t *testing.T, email, password string) auth.AuthResponse {
		t.Helper()
		w := postJSON(router, "/auth/login", map[string]any{"email": email, "password": password})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}

	t.Run("Register_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")

		w := postJSON(router, "/auth/register", map[string]any{
			"email":    "olga@example.com",
			"password": "password123",
			"name":     "Olga",
			"currency": "eur",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.NotContains(t, w.Body.String(), "password123")

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.NotEmpty(t, response.AccessToken)
		assert.NotEmpty(t, response.RefreshToken)
		require.NotNil(t, response.Account)
		assert.Equal(t, currency.EUR, response.Account.Currency)

		cookie := tokenCookie(t, w)
		assert.Equal(t, response.AccessToken, cookie.Value)
		assert.True(t, cookie.HttpOnly)

		claims, err := tokens.ValidateAccessToken(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, response.Account.ID.String(), claims.Subject)
	})

	t.Run("Register_DefaultCurrency", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")

		w := postJSON(router, "/auth/register", map[string]any{
			"email":    "olga@example.com",
			"password": "password123",
			"name":     "Olga",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, currency.UAH, response.Account.Currency)
	})

	t.Run("Register_DuplicateEmail", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		seedAccount(t, "duplicate@example.com", "password123")

		w := postJSON(router, "/auth/register", map[string]any{
			"email":    "Duplicate@Example.com",
			"password": "password456",
			"name":     "Someone",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "email already exists")
	})

	t.Run("Register_ValidationError", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")

		tests := []struct {
			name    string
			payload map[string]any
			want    string
		}{
			{"bad email", map[string]any{"email": "invalid", "password": "password123", "name": "Olga"}, "email must be a valid email address"},
			{"short password", map[string]any{"email": "a@b.co", "password": "short", "name": "Olga"}, "password must be at least 8 characters"},
			{"blank name", map[string]any{"email": "a@b.co", "password": "password123", "name": " "}, "name is required"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := postJSON(router, "/auth/register", tt.payload)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), tt.want)
			})
		}

		w := postJSON(router, "/auth/register", map[string]any{
			"email": "a@b.co", "password": "password123", "name": "Olga", "currency": "BTC",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Login_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		acc := seedAccount(t, "jane@example.com", "password123")

		w := postJSON(router, "/auth/login", map[string]any{
			"email":    "jane@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.NotEmpty(t, response.RefreshToken)
		assert.Equal(t, acc.ID, response.Account.ID)
		assert.Equal(t, response.AccessToken, tokenCookie(t, w).Value)

		stored, err := authRepo.GetRefreshToken(ctx, response.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, acc.ID, stored.AccountID)
		assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), stored.ExpiresAt, time.Minute)
	})

	t.Run("Login_InvalidPassword", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		seedAccount(t, "test@example.com", "correctpassword")

		w := postJSON(router, "/auth/login", map[string]any{
			"email":    "test@example.com",
			"password": "wrongpassword",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid email or password")
	})

	t.Run("Login_UserNotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")

		w := postJSON(router, "/auth/login", map[string]any{
			"email":    "nonexistent@example.com",
			"password": "password123",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Refresh_RotatesToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		seedAccount(t, "refresh@example.com", "password123")
		first := login(t, "refresh@example.com", "password123")

		w := postJSON(router, "/auth/refresh", map[string]any{"refreshToken": first.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)

		var second auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&second))
		assert.NotEmpty(t, second.AccessToken)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		// the old token was consumed
		w = postJSON(router, "/auth/refresh", map[string]any{"refreshToken": first.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Refresh_InvalidToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")

		w := postJSON(router, "/auth/refresh", map[string]any{"refreshToken": "invalid-token"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired refresh token")
	})

	t.Run("Refresh_ExpiredToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		acc := seedAccount(t, "expired@example.com", "password123")
		require.NoError(t, authRepo.CreateRefreshToken(ctx, acc.ID, "stale", time.Now().Add(-time.Hour)))

		w := postJSON(router, "/auth/refresh", map[string]any{"refreshToken": "stale"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		n, err := authRepo.DeleteExpiredTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Logout_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		seedAccount(t, "logout@example.com", "password123")
		session := login(t, "logout@example.com", "password123")

		w := postJSON(router, "/auth/logout", map[string]any{"refreshToken": session.RefreshToken})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Negative(t, tokenCookie(t, w).MaxAge)

		w = postJSON(router, "/auth/refresh", map[string]any{"refreshToken": session.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh token should be invalid after logout")
	})

	t.Run("LogoutAll", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "accounts", "refresh_tokens")
		seedAccount(t, "busy@example.com", "password123")
		laptop := login(t, "busy@example.com", "password123")
		phone := login(t, "busy@example.com", "password123")

		w := postJSON(router, "/auth/logout-all", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = postJSON(router, "/auth/logout-all", nil, &http.Cookie{Name: "token", Value: laptop.AccessToken})
		assert.Equal(t, http.StatusNoContent, w.Code)

		for _, session := range []auth.AuthResponse{laptop, phone} {
			w := postJSON(router, "/auth/refresh", map[string]any{"refreshToken": session.RefreshToken})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		}
	})
}
