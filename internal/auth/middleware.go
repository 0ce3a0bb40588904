package auth

import (
	"net/http"
	"time"

	"tamerun/internal/log"
)

const (
	CookieName = "tamerun_session"
	LoginPath  = "/login"
)

// Middleware rejects requests without a valid session cookie. HTMX requests
// get an HX-Redirect header, everything else a 303 to the login page.
func Middleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				redirectToLogin(w, r)
				return
			}

			id, err := issuer.Parse(cookie.Value)
			if err != nil {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected session token",
					log.FieldPath, r.URL.Path,
					log.FieldError, err)
				ClearSessionCookie(w, r)
				redirectToLogin(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
