package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "direct client", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted peer ignores forwarded", remoteAddr: "203.0.113.7:5000",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1"}, want: "203.0.113.7"},
		{name: "trusted proxy forwarded-for", remoteAddr: "10.0.0.2:443",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"}, want: "198.51.100.1"},
		{name: "trusted proxy real ip", remoteAddr: "127.0.0.1:443",
			headers: map[string]string{"X-Real-IP": "198.51.100.2"}, want: "198.51.100.2"},
		{name: "trusted proxy garbage header", remoteAddr: "192.168.1.1:443",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, want: "192.168.1.1"},
		{name: "no port", remoteAddr: "198.51.100.3", want: "198.51.100.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware(t *testing.T) {
	d := NewDetector(nil)
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/subscriptions?search=net", http.StatusOK},
		{http.MethodGet, "/api/../../etc/passwd", http.StatusBadRequest},
		{http.MethodGet, "/api/subscriptions?search=%3Cscript%3E", http.StatusOK},
		{http.MethodGet, "/.env", http.StatusBadRequest},
		{"TRACE", "/api/subscriptions", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))
		if rr.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rr.Code, tt.want)
		}
	}
	if d.Rejected() != 3 {
		t.Errorf("Rejected() = %d, want 3", d.Rejected())
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Errorf("HSTS sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}
