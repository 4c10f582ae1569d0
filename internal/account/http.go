package account

import (
	"errors"
	"log/slog"
	"net/http"

	"tutor-service/common/httputil"
	"tutor-service/internal/currency"
	"tutor-service/internal/owner"
	"tutor-service/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
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
	router.Route("/account", func(r chi.Router) {
		r.Get("/", h.GetAccount)
		r.Put("/", h.UpdateAccount)
		r.Get("/currencies", h.ListCurrencies)
	})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Profile(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, validation.Message(err))
		return
	}

	account, err := h.service.UpdateProfile(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "account updated", "account_id", account.ID, "currency", account.Currency)
	httputil.RespondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, currency.Options)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, owner.ErrUnauthenticated):
		httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrAccountNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "account request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
