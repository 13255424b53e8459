package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"subtrack/internal/log"
)

type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
)

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Observer is told about every completed request. route is the matched mux
// pattern, empty when nothing matched.
type Observer func(method, route string, status int, elapsed time.Duration)

// Middleware assigns request ids, stores a request-scoped logger in the
// context and logs request start and completion. It must wrap the ServeMux
// directly, or through handlers that pass the request on unchanged, for the
// observer to see the matched route.
type Middleware struct {
	extractIP func(*http.Request) string
	base      *log.Logger
	logger    *log.Logger
	events    *log.StructuredLogger
	observer  Observer
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger, observer Observer) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	return &Middleware{
		extractIP: extractIP,
		base:      logger.WithComponent(log.ComponentHTTP),
		logger:    logger.WithComponent(log.ComponentTrace),
		events:    log.NewStructuredLogger(logger.WithComponent(log.ComponentTrace)),
		observer:  observer,
	}
}

// Middleware returns HTTP middleware for request tracing. An incoming
// X-Request-ID is reused when it looks sane.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		fields := log.NewFields().WithRequestID(requestID)
		if clientIP != "" {
			fields.WithClientIP(clientIP)
		}
		ctx = log.NewContext(ctx, m.base.With(fields.ToSlice()...))
		r = r.WithContext(ctx)

		m.logger.DebugContext(ctx, "HTTP request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldQuery, r.URL.RawQuery,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.events.LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
		if m.observer != nil {
			m.observer(r.Method, r.Pattern, rw.statusCode, elapsed)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
