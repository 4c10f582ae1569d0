package student_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tutor-service/common/logger"
	commonmetrics "tutor-service/common/metrics"
	"tutor-service/internal/kvstore"
	"tutor-service/internal/messaging"
	"tutor-service/internal/metrics"
	"tutor-service/internal/owner"
	"tutor-service/internal/student"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *chi.Mux
}

func setupTest(t *testing.T, ownerID uuid.UUID) *testEnv {
	t.Helper()

	repo := student.NewLocalRepository(kvstore.NewMemory(0, commonmetrics.NewMock()), logger.Discard())
	emitter := messaging.NewEmitter(messaging.Noop{}, commonmetrics.NewMock(), logger.Discard())
	handler := student.NewHandler(student.NewService(repo, emitter, metrics.NewMock()), logger.Discard())

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ownerID != uuid.Nil {
				r = r.WithContext(owner.WithID(r.Context(), ownerID))
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Route("/api", handler.RegisterRoutes)

	return &testEnv{router: router}
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) create(t *testing.T, body string) student.Student {
	t.Helper()
	w := env.do(http.MethodPost, "/api/students", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var s student.Student
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	return s
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func TestCreateStudent(t *testing.T) {
	env := setupTest(t, uuid.New())

	s := env.create(t, `{"name":" Anna ","hourlyRate":25,"email":"anna@example.com"}`)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, "Anna", s.Name)
	require.NotNil(t, s.Email)
	assert.Equal(t, "anna@example.com", *s.Email)
	assert.Nil(t, s.Phone)

	w := env.do(http.MethodGet, "/api/students/"+s.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"phone"`)
}

func TestCreateStudent_DuplicateName(t *testing.T) {
	env := setupTest(t, uuid.New())
	env.create(t, `{"name":"Anna","hourlyRate":25}`)

	w := env.do(http.MethodPost, "/api/students", `{"name":"anna","hourlyRate":30}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `Student with name "anna" already exists`, errorMessage(t, w))
}

func TestCreateStudent_Validation(t *testing.T) {
	env := setupTest(t, uuid.New())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", `{"hourlyRate":25}`, "name is required"},
		{"zero rate", `{"name":"Anna","hourlyRate":0}`, "hourlyRate is required"},
		{"negative rate", `{"name":"Anna","hourlyRate":-3}`, "hourlyRate must be greater than 0"},
		{"bad email", `{"name":"Anna","hourlyRate":25,"email":"nope"}`, "email must be a valid email address"},
		{"invalid json", `{"name":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/students", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, errorMessage(t, w))
		})
	}
}

func TestListStudents_Search(t *testing.T) {
	env := setupTest(t, uuid.New())

	w := env.do(http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	env.create(t, `{"name":"Joanna","hourlyRate":25}`)
	env.create(t, `{"name":"Bob","hourlyRate":25}`)
	env.create(t, `{"name":"Anna","hourlyRate":25}`)

	w = env.do(http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []student.Student
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	assert.Equal(t, []string{"Anna", "Bob", "Joanna"}, names(all))

	w = env.do(http.MethodGet, "/api/students?q=ANN", "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []student.Student
	require.NoError(t, json.NewDecoder(w.Body).Decode(&found))
	assert.Equal(t, []string{"Anna", "Joanna"}, names(found))
}

func TestUpdateStudent(t *testing.T) {
	env := setupTest(t, uuid.New())
	anna := env.create(t, `{"name":"Anna","hourlyRate":25,"email":"anna@example.com"}`)
	env.create(t, `{"name":"Bob","hourlyRate":25}`)

	w := env.do(http.MethodPut, "/api/students/"+anna.ID.String(), `{"hourlyRate":40,"email":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated student.Student
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "Anna", updated.Name)
	assert.Nil(t, updated.Email)
	assert.Equal(t, "40", updated.HourlyRate.String())

	t.Run("rename to taken name", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/students/"+anna.ID.String(), `{"name":" BOB "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, `Student with name "BOB" already exists`, errorMessage(t, w))
	})

	t.Run("not found", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/students/"+uuid.NewString(), `{"name":"Zed"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/students/abc", `{"name":"Zed"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid student ID", errorMessage(t, w))
	})
}

func TestDeleteStudent(t *testing.T) {
	env := setupTest(t, uuid.New())
	anna := env.create(t, `{"name":"Anna","hourlyRate":25}`)

	w := env.do(http.MethodDelete, "/api/students/"+anna.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodDelete, "/api/students/"+anna.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Student not found", errorMessage(t, w))
}

func TestStudents_Unauthenticated(t *testing.T) {
	env := setupTest(t, uuid.Nil)

	w := env.do(http.MethodGet, "/api/students", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(http.MethodPost, "/api/students", `{"name":"Anna","hourlyRate":25}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodDelete, "/api/students/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
