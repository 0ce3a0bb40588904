package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("unexpected HX-Trigger without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTransactionCreated("2024-03", "expense").
		TriggerFormReset().
		TriggerGoalUpdated(4).
		TriggerSuccessNotification("Saved").
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, event := range []string{EventTransactionCreated, EventFormReset, EventGoalUpdated, EventNotification} {
		if _, ok := got[event]; !ok {
			t.Errorf("HX-Trigger missing %q: %s", event, w.Header().Get("HX-Trigger"))
		}
	}
	if !strings.Contains(string(got[EventTransactionCreated]), `"month":"2024-03"`) {
		t.Errorf("unexpected payload %s", got[EventTransactionCreated])
	}
	if !strings.Contains(string(got[EventNotification]), `"type":"success"`) {
		t.Errorf("unexpected notification %s", got[EventNotification])
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
	}{
		{name: "bad request", builder: BadRequestError("<b>bad</b>"), status: http.StatusBadRequest},
		{name: "unprocessable", builder: ErrorResponse(http.StatusUnprocessableEntity, "<b>bad</b>"), status: http.StatusUnprocessableEntity},
		{name: "internal", builder: InternalServerError("<b>bad</b>"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if strings.Contains(w.Body.String(), "<b>") {
				t.Fatalf("message not escaped: %s", w.Body.String())
			}
			if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
				t.Fatalf("unexpected content type %q", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/").Write(w)
	if w.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("HX-Redirect = %q", w.Header().Get("HX-Redirect"))
	}
}
