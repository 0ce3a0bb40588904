package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in both directions.
	HeaderRequestID = "X-Request-ID"
)

// Middleware assigns every request an ID and keeps request counters.
type Middleware struct {
	trustIncoming bool
	metrics       *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests int64
	// AverageResponseTime is a running mean in microseconds.
	AverageResponseTime int64
}

// NewMiddleware creates a trace middleware. When trustIncoming is set, a
// well-formed X-Request-ID from the client (or a proxy) is reused.
func NewMiddleware(trustIncoming bool) *Middleware {
	return &Middleware{
		trustIncoming: trustIncoming,
		metrics:       &Metrics{},
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := ""
		if m.trustIncoming {
			requestID = validRequestID(r.Header.Get(HeaderRequestID))
		}
		if requestID == "" {
			requestID = GenerateRequestID()
		}

		w.Header().Set(HeaderRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))

		m.record(time.Since(start))
	})
}

func (m *Middleware) record(d time.Duration) {
	n := atomic.AddInt64(&m.metrics.TotalRequests, 1)
	micros := d.Microseconds()
	for {
		old := atomic.LoadInt64(&m.metrics.AverageResponseTime)
		next := old + (micros-old)/n
		if atomic.CompareAndSwapInt64(&m.metrics.AverageResponseTime, old, next) {
			return
		}
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// validRequestID returns id when it parses as a UUID, otherwise "".
func validRequestID(id string) string {
	if id == "" || len(id) > 64 {
		return ""
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ""
	}
	return parsed.String()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromRequest is GetRequestID for use as a log.Middleware extractor.
func FromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
