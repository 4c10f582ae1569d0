package student

import (
	"errors"
	"log/slog"
	"net/http"

	"tutor-service/common/httputil"
	"tutor-service/internal/kvstore"
	"tutor-service/internal/owner"
	"tutor-service/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validation.New(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/students", func(r chi.Router) {
		r.Get("/", h.ListStudents)
		r.Post("/", h.CreateStudent)
		r.Get("/{id}", h.GetStudent)
		r.Put("/{id}", h.UpdateStudent)
		r.Delete("/{id}", h.DeleteStudent)
	})
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.ListStudents(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, students)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := studentID(w, r)
	if !ok {
		return
	}

	student, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, validation.Message(err))
		return
	}

	h.logger.InfoContext(r.Context(), "adding student", "name", req.Name)
	student, err := h.service.CreateStudent(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, student)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := studentID(w, r)
	if !ok {
		return
	}

	var patch Patch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&patch); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, validation.Message(err))
		return
	}

	h.logger.InfoContext(r.Context(), "updating student", "student_id", id)
	student, err := h.service.UpdateStudent(r.Context(), id, patch)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := studentID(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "deleting student", "student_id", id)
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func studentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrStudentNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Student not found")
	case errors.Is(err, ErrDuplicateName):
		h.logger.InfoContext(ctx, "duplicate student name", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, owner.ErrUnauthenticated):
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, kvstore.ErrQuotaExceeded):
		h.logger.WarnContext(ctx, "local storage is full", "error", err)
		httputil.RespondWithError(w, http.StatusInsufficientStorage, "Local storage quota exceeded. Delete old records or switch to remote storage.")
	default:
		h.logger.ErrorContext(ctx, "student request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
