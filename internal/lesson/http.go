package lesson

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

const (
	sortByDate    = "date"
	sortByStudent = "student"
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
	router.Route("/lessons", func(r chi.Router) {
		r.Get("/", h.ListLessons)
		r.Post("/", h.CreateLesson)
		r.Get("/{id}", h.GetLesson)
		r.Put("/{id}", h.UpdateLesson)
		r.Delete("/{id}", h.DeleteLesson)
	})
}

// ListLessons answers newest first, or by student name with ?sort=student
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort")
	if sortBy != "" && sortBy != sortByDate && sortBy != sortByStudent {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid sort, expected date or student")
		return
	}

	lessons, err := h.service.ListLessons(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if sortBy == sortByStudent {
		SortByStudent(lessons)
	}
	httputil.RespondWithJSON(w, http.StatusOK, lessons)
}

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}

	lesson, err := h.service.GetLesson(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, lesson)
}

func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, validation.Message(err))
		return
	}

	h.logger.InfoContext(r.Context(), "recording lesson", "student", req.StudentName, "date", req.Date)
	lesson, err := h.service.CreateLesson(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, lesson)
}

func (h *Handler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
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

	h.logger.InfoContext(r.Context(), "updating lesson", "lesson_id", id)
	lesson, err := h.service.UpdateLesson(r.Context(), id, patch)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, lesson)
}

func (h *Handler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "deleting lesson", "lesson_id", id)
	if err := h.service.DeleteLesson(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lessonID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid lesson ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrLessonNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Lesson not found")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, owner.ErrUnauthenticated):
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, kvstore.ErrQuotaExceeded):
		h.logger.WarnContext(ctx, "local storage is full", "error", err)
		httputil.RespondWithError(w, http.StatusInsufficientStorage, "Local storage quota exceeded. Delete old lessons or switch to remote storage.")
	default:
		h.logger.ErrorContext(ctx, "lesson request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
