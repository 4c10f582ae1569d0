package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tutor-service/common/httputil"
	"tutor-service/internal/owner"

	"github.com/google/uuid"
)

const cookieName = "token"

// DefaultLocalOwner owns local-mode records when no owner id is configured
var DefaultLocalOwner = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tutor-service:local-owner"))

// Middleware validates the access token from the token cookie (or a Bearer
// header) and attaches the account id as the acting owner.
func Middleware(tokens *Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := accessToken(r)
			if raw == "" {
				logger.DebugContext(r.Context(), "no auth token found", "path", r.URL.Path)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := tokens.ValidateAccessToken(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid token", "error", err)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			accountID, err := claims.AccountID()
			if err != nil || accountID == uuid.Nil {
				logger.WarnContext(r.Context(), "token subject is not an account id", "subject", claims.Subject)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(owner.WithID(r.Context(), accountID)))
		})
	}
}

// LocalOwner attaches a fixed owner to every request
func LocalOwner(id uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(owner.WithID(r.Context(), id)))
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// SetAuthCookie sets the access token in an HttpOnly cookie
func SetAuthCookie(w http.ResponseWriter, token, env string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secureCookies(env),
		SameSite: sameSite(env),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearAuthCookie removes the auth cookie
func ClearAuthCookie(w http.ResponseWriter, env string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secureCookies(env),
		SameSite: sameSite(env),
		Path:     "/",
		MaxAge:   -1,
	})
}

// Lax in development so the API can be driven from Postman
func sameSite(env string) http.SameSite {
	if env == "development" || env == "local" {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
}

// Secure cookies require HTTPS
func secureCookies(env string) bool {
	return env == "production" || env == "prod" || env == "gcp-gke"
}
