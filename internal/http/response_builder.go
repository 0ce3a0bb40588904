// Package http provides the web server, routes and handlers.
//
// This file builds the fragments returned to htmx: a status, an HTML body
// and the HX-Trigger events the pages react to.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Events the pages listen for.
const (
	EventTransactionCreated = "transaction:created"
	EventGoalUpdated        = "goal:updated"
	EventReceiptRegistered  = "receipt:registered"
	EventFormReset          = "form:reset"
	EventNotification       = "show-notification"
)

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification is the payload of a show-notification event, rendered as a
// toast by app.js.
type Notification struct {
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	DurationMs int              `json:"duration"`
}

type transactionCreated struct {
	Month string `json:"month"`
	Kind  string `json:"kind"`
}

type goalUpdated struct {
	ID int64 `json:"id"`
}

type receiptRegistered struct {
	Count int `json:"count"`
}

// HTMXResponseBuilder assembles one htmx response.
type HTMXResponseBuilder struct {
	status   int
	header   http.Header
	triggers map[string]any
	body     []byte
}

// NewHTMXResponse starts a 200 response with no body.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status:   http.StatusOK,
		header:   make(http.Header),
		triggers: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger adds an event to HX-Trigger. A later call with the same name
// replaces the payload.
func (b *HTMXResponseBuilder) Trigger(name string, payload any) *HTMXResponseBuilder {
	b.triggers[name] = payload
	return b
}

// TriggerTransactionCreated carries the month (YYYY-MM) and kind so the
// dashboard and stats panels know whether to refresh.
func (b *HTMXResponseBuilder) TriggerTransactionCreated(month, kind string) *HTMXResponseBuilder {
	return b.Trigger(EventTransactionCreated, transactionCreated{Month: month, Kind: kind})
}

func (b *HTMXResponseBuilder) TriggerGoalUpdated(goalID int64) *HTMXResponseBuilder {
	return b.Trigger(EventGoalUpdated, goalUpdated{ID: goalID})
}

func (b *HTMXResponseBuilder) TriggerReceiptRegistered(count int) *HTMXResponseBuilder {
	return b.Trigger(EventReceiptRegistered, receiptRegistered{Count: count})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, Notification{Type: NotificationSuccess, Message: message, DurationMs: 3000})
}

// Errors stay on screen longer than confirmations.
func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, Notification{Type: NotificationError, Message: message, DurationMs: 5000})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Redirect makes htmx load url as a full page.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = []byte(html)
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	if len(b.triggers) > 0 {
		if events, err := json.Marshal(b.triggers); err == nil {
			dst.Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

func fragment(class, role, message string) string {
	return `<div class="` + class + `" role="` + role + `">` + template.HTMLEscapeString(message) + `</div>`
}

// ErrorResponse is an escaped error fragment with the given status.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(fragment("error", "alert", message))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// SuccessResponse is a confirmation fragment plus a matching toast.
func SuccessResponse(message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		BodyHTML(fragment("success", "status", message)).
		TriggerSuccessNotification(message)
}
