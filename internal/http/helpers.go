package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"tamerun/internal/auth"
	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/services"
)

var templateFuncs = template.FuncMap{
	"money": core.FormatAmount,
	"pct": func(f float64) string {
		return fmt.Sprintf("%.1f%%", f)
	},
	"coord": func(f float64) string {
		return fmt.Sprintf("%.2f", f)
	},
	"nullDecimal": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return ""
		}
		return d.Decimal.String()
	},
	"isNegative": func(d decimal.Decimal) bool { return d.IsNegative() },
}

// render executes a named template into a buffer first so a failed render
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Something went wrong while rendering the page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// owner returns the authenticated user's id. Routes behind auth.Middleware
// always carry an identity.
func owner(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}

func withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, readTimeout)
}

// statusFor maps service and domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAnalysisDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrUpstreamEmpty), errors.Is(err, core.ErrMalformedPayload):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case isValidationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrInvalidKind, core.ErrInvalidDate,
		core.ErrInvalidDay, core.ErrInvalidMonth, core.ErrMissingCategory,
		core.ErrMemoTooLong, core.ErrEmptyGoalName, core.ErrUnknownCategory,
		core.ErrCategoryKindMismatch, core.ErrMissingOwner,
		services.ErrEmptyImage, services.ErrInvalidContribution, services.ErrNoReceiptItems,
		services.ErrForeignImage, ErrMissingImage, ErrIncompleteReceipt,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// userMessage is the text shown to the user for err. Internal failures get
// a generic message; validation errors are shown as they are.
func userMessage(err error) string {
	switch statusFor(err) {
	case http.StatusInternalServerError:
		return "Something went wrong. Please try again."
	case http.StatusBadGateway:
		return "The receipt could not be read. Please try another photo."
	case http.StatusGatewayTimeout:
		return "The request took too long. Please try again."
	case http.StatusNotFound:
		return "Not found."
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// fail logs err at a level matching its status and writes an HTMX error
// fragment with a notification.
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, log.FieldError, err, log.FieldStatusCode, status)
	} else {
		logger.InfoContext(r.Context(), msg, log.FieldError, err, log.FieldStatusCode, status)
	}
	text := userMessage(err)
	ErrorResponse(status, text).TriggerErrorNotification(text).Write(w)
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
