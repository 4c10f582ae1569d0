package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"tutor-service/common/httputil"
	"tutor-service/internal/account"
	"tutor-service/internal/currency"
	"tutor-service/internal/owner"
	"tutor-service/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  *Service
	tokens   *Tokens
	env      string
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(service *Service, tokens *Tokens, env string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		env:      env,
		logger:   logger,
		validate: validation.New(),
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.With(Middleware(h.tokens, h.logger)).Post("/logout-all", h.LogoutAll)
	})
}

// Register creates a new account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrEmailExists):
			httputil.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, currency.ErrUnknownCurrency):
			httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "registration failed", "error", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.logger.InfoContext(r.Context(), "account registered", "account_id", resp.Account.ID)
	SetAuthCookie(w, resp.AccessToken, h.env, h.tokens.AccessTTL())
	httputil.RespondWithJSON(w, http.StatusCreated, resp)
}

// Login authenticates an account
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httputil.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "login failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.InfoContext(r.Context(), "account logged in", "account_id", resp.Account.ID)
	SetAuthCookie(w, resp.AccessToken, h.env, h.tokens.AccessTTL())
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

// Refresh rotates the refresh token and issues a new access token
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			httputil.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "token refresh failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	SetAuthCookie(w, resp.AccessToken, h.env, h.tokens.AccessTTL())
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

// Logout invalidates the refresh token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.ErrorContext(r.Context(), "logout failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ClearAuthCookie(w, h.env)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll invalidates every refresh token of the signed-in account
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	accountID := owner.FromContext(r.Context())

	if err := h.service.LogoutAll(r.Context(), accountID); err != nil {
		h.logger.ErrorContext(r.Context(), "logout of all sessions failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.InfoContext(r.Context(), "all sessions revoked", "account_id", accountID)
	ClearAuthCookie(w, h.env)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, validation.Message(err))
		return false
	}
	return true
}
