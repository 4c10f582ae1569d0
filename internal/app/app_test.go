package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tutor-service/common/logger"
	"tutor-service/internal/app"
	"tutor-service/internal/config"
	"tutor-service/internal/income"
	"tutor-service/internal/lesson"
	"tutor-service/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		Env:    "local",
		Server: config.ServerConfig{Port: "0", CORSOrigins: []string{"http://localhost:3000"}},
		Grpc:   config.GrpcConfig{Port: "0"},
		Storage: config.StorageConfig{
			Local: config.LocalConfig{Driver: config.LocalDriverMemory, QuotaBytes: 1 << 20},
		},
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			AccessTTLMinutes: 15,
			RefreshTTLHours:  24,
		},
		Events: config.EventsConfig{Driver: config.EventsDriverNone},
		App:    config.AppConfig{Currency: "EUR"},
	}
}

type client struct {
	handler http.Handler
	cookies []*http.Cookie
}

func (c *client) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func recordLessons(t *testing.T, c *client) {
	t.Helper()
	for _, body := range []map[string]any{
		{"studentName": "Anna", "hourlyRate": 20, "duration": 3.5, "date": "2024-01-15"},
		{"studentName": "Bob", "hourlyRate": "1000", "duration": 1.25, "date": "2024-01-17"},
		{"studentName": "Cleo", "hourlyRate": 15, "duration": 2, "date": "2023-12-20"},
	} {
		w := c.do(t, http.MethodPost, "/api/lessons", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestApp_LocalMode(t *testing.T) {
	ctx := context.Background()
	application, err := app.NewWithConfig(ctx, baseConfig(), logger.Discard())
	require.NoError(t, err)
	defer application.Shutdown(ctx)

	c := &client{handler: application.Handler()}

	w := c.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = c.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	recordLessons(t, c)

	w = c.do(t, http.MethodGet, "/api/lessons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lessons []lesson.Lesson
	require.NoError(t, json.NewDecoder(w.Body).Decode(&lessons))
	require.Len(t, lessons, 3)
	assert.Equal(t, "Bob", lessons[0].StudentName)
	assert.Contains(t, w.Body.String(), `"hourlyRate":1000`)

	w = c.do(t, http.MethodGet, "/api/income/summary?date=2024-01-17", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary income.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "€1,320.00", summary.Formatted.Week)
	assert.Equal(t, "€1,350.00", summary.Formatted.Total)

	w = c.do(t, http.MethodPost, "/api/students", map[string]any{"name": "Anna", "hourlyRate": 20})
	assert.Equal(t, http.StatusCreated, w.Code)

	// no accounts without the remote backend
	w = c.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "a@b.co", "password": "password123"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = c.do(t, http.MethodGet, "/api/account", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApp_InvalidLocalOwner(t *testing.T) {
	cfg := baseConfig()
	cfg.Storage.Local.OwnerID = "not-a-uuid"

	_, err := app.NewWithConfig(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}

func TestApp_RemoteMode(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	ctx := context.Background()
	host, err := pg.Container.Host(ctx)
	require.NoError(t, err)
	port, err := pg.Container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.Storage.Remote = true
	cfg.Database = config.DatabaseConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "postgres",
		Password: "postgres",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	application, err := app.NewWithConfig(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer application.Shutdown(ctx)

	c := &client{handler: application.Handler()}

	w := c.do(t, http.MethodGet, "/api/lessons", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(t, http.MethodPost, "/auth/register", map[string]any{
		"email":    "olga@example.com",
		"password": "password123",
		"name":     "Olga",
		"currency": "USD",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c.cookies = w.Result().Cookies()

	recordLessons(t, c)

	w = c.do(t, http.MethodGet, "/api/income/summary?date=2024-01-17", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary income.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "$1,320.00", summary.Formatted.Week)

	w = c.do(t, http.MethodPut, "/api/account", map[string]any{"currency": "UAH"})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(t, http.MethodGet, "/api/income/summary?date=2024-01-17", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "₴1,320.00", summary.Formatted.Week)

	// another account sees nothing
	other := &client{handler: application.Handler()}
	w = other.do(t, http.MethodPost, "/auth/register", map[string]any{
		"email": "ivan@example.com", "password": "password123", "name": "Ivan",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	other.cookies = w.Result().Cookies()

	w = other.do(t, http.MethodGet, "/api/lessons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
