package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

// UserSource resolves the logged-in user for a request context.
type UserSource interface {
	User(ctx context.Context) *rental.User
}

type ctxUserKey struct{}

func WithUser(ctx context.Context, u *rental.User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

// CurrentUser returns the user RequireUser attached, or nil.
func CurrentUser(ctx context.Context) *rental.User {
	u, _ := ctx.Value(ctxUserKey{}).(*rental.User)
	return u
}

type unauthorizedResponse struct {
	OK         bool   `json:"ok"`
	Message    string `json:"mensaje"`
	RedirectTo string `json:"redirectTo"`
}

// RequireUser lets authenticated requests through. Page requests are sent to
// the login page with a return url; JSON clients get a 401 body carrying the
// same redirect.
func RequireUser(users UserSource) func(http.Handler) http.Handler {
	return requireUser(users, false)
}

// RequireUserJSON always answers unauthenticated requests with the 401 body,
// for endpoints called from scripts.
func RequireUserJSON(users UserSource) func(http.Handler) http.Handler {
	return requireUser(users, true)
}

func requireUser(users UserSource, alwaysJSON bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := users.User(r.Context()); u != nil {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
				return
			}

			returnURL := r.URL.Path
			if r.Method != http.MethodGet {
				returnURL = r.Referer()
				if ref, err := url.Parse(returnURL); err == nil && ref.Path != "" {
					returnURL = ref.Path
				} else {
					returnURL = "/"
				}
			} else if r.URL.RawQuery != "" {
				returnURL += "?" + r.URL.RawQuery
			}
			login := "/login?returnUrl=" + url.QueryEscape(returnURL)

			if alwaysJSON || wantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(unauthorizedResponse{
					OK:         false,
					Message:    "Debes iniciar sesion para continuar.",
					RedirectTo: login,
				})
				return
			}
			http.Redirect(w, r, login, http.StatusSeeOther)
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
