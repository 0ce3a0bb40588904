package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tamerun/internal/log"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		userAgent   string
		wantReason  bool
		wantBlocked bool
	}{
		{name: "dashboard", method: http.MethodGet, target: "/?month=2024-03", wantReason: false},
		{name: "traversal", method: http.MethodGet, target: "/static/../.env", wantReason: true, wantBlocked: true},
		{name: "trace method", method: "TRACE", target: "/", wantReason: true, wantBlocked: true},
		{name: "injection in query", method: http.MethodGet, target: "/stats?next=javascript:alert(1)", wantReason: true},
		{name: "scanner", method: http.MethodGet, target: "/", userAgent: "sqlmap/1.7", wantReason: true},
		{name: "long url", method: http.MethodGet, target: "/?q=" + strings.Repeat("a", maxURLLength), wantReason: true, wantBlocked: true},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.userAgent != "" {
				r.Header.Set("User-Agent", tt.userAgent)
			}
			reason, blocked := d.Inspect(r)
			if (reason != "") != tt.wantReason || blocked != tt.wantBlocked {
				t.Fatalf("Inspect = (%q, %v)", reason, blocked)
			}
		})
	}
	if m := d.GetMetrics(); m.BlockedRequests != 3 || m.SuspiciousRequests != 5 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	d := NewDetector()
	called := false
	h := d.Middleware(log.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin/login.php", nil))
	if rr.Code != http.StatusNotFound || called {
		t.Fatalf("expected blocked 404, got %d (handler called=%v)", rr.Code, called)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/input", nil))
	if !called {
		t.Fatal("clean request not passed through")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.9:5555", want: "203.0.113.9"},
		{name: "untrusted peer ignores xff", remote: "203.0.113.9:5555", xff: "1.2.3.4", want: "203.0.113.9"},
		{name: "trusted proxy xff", remote: "10.0.0.2:80", xff: "198.51.100.7, 10.0.0.1", want: "198.51.100.7"},
		{name: "trusted proxy x-real-ip", remote: "127.0.0.1:80", xri: "198.51.100.8", want: "198.51.100.8"},
		{name: "trusted proxy bad xff", remote: "192.168.1.1:80", xff: "nonsense", want: "192.168.1.1"},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}

	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected invalid CIDR error")
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing X-Frame-Options")
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "https://unpkg.com") {
		t.Fatalf("CSP does not allow htmx: %q", rr.Header().Get("Content-Security-Policy"))
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !strings.HasPrefix(rr.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Fatalf("expected HSTS over TLS, got %q", rr.Header().Get("Strict-Transport-Security"))
	}
}
