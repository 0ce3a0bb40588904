package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tamerun/internal/auth"
	"tamerun/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady pings storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "storage": "ok"}
	if s.deps.Storage != nil {
		if err := s.deps.Storage.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks["storage"] = "failed"
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks})
}

type loginPage struct {
	Mode  string // "login" or "signup"
	Email string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	mode := "login"
	if r.URL.Query().Get("mode") == "signup" {
		mode = "signup"
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{Mode: mode})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, "login", s.deps.Auth.Login)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, "signup", s.deps.Auth.SignUp)
}

type credentialsFunc func(ctx context.Context, email, password string) (auth.Identity, string, error)

// authenticate runs login or sign-up and starts a session on success. Known
// credential errors re-render the form; anything else is a 500.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, mode string, fn credentialsFunc) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	id, token, err := fn(r.Context(), email, password)
	if err != nil {
		logger := log.FromContext(r.Context())
		page := loginPage{Mode: mode, Email: email}
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrEmailTaken):
			logger.InfoContext(r.Context(), "Authentication rejected",
				log.FieldOperation, log.OpLogin,
				"mode", mode,
				log.FieldError, err)
			page.Error = err.Error()
			s.render(w, r, http.StatusUnauthorized, "login.html", page)
		default:
			logger.ErrorContext(r.Context(), "Authentication failed", "mode", mode, log.FieldError, err)
			page.Error = "Something went wrong. Please try again."
			s.render(w, r, http.StatusInternalServerError, "login.html", page)
		}
		return
	}

	auth.SetSessionCookie(w, r, token, s.deps.Tokens.TTL())
	log.FromContext(r.Context()).InfoContext(r.Context(), "User signed in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, id.UserID,
		"mode", mode)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, r)
	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect(auth.LoginPath).Write(w)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}
