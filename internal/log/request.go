package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type loggerKey struct{}

// IntoContext returns a copy of ctx carrying l.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger placed by IntoContext. Without one it falls
// back to slog's default handler tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// ComponentMiddleware retags the request logger of the routes it wraps.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := FromContext(r.Context()).WithComponent(component)
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), l)))
		})
	}
}

// RequestLogger writes the fixed set of request-scoped records.
type RequestLogger struct {
	logger *Logger
}

func NewRequestLogger(l *Logger) RequestLogger {
	return RequestLogger{logger: l}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (rl RequestLogger) Started(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)
	rl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// Completed logs at info, warn for 4xx and error for 5xx.
func (rl RequestLogger) Completed(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(status, elapsed.Milliseconds(), status < 400).
		WithClientIP(clientIP)
	rl.logger.Log(ctx, statusLevel(status), "HTTP request completed", fields.ToSlice()...)
}

// LedgerWrite records a successful mutation of a user's ledger.
func (rl RequestLogger) LedgerWrite(ctx context.Context, operation, userID, period string) {
	fields := NewFields().
		WithUser(userID).
		WithPeriod(period).
		WithOperation(operation)
	rl.logger.InfoContext(ctx, "Ledger write applied", fields.ToSlice()...)
}

// Failed records a request that ended in an unexpected error.
func (rl RequestLogger) Failed(ctx context.Context, r *http.Request, err error, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.
		WithHTTPRequest(r.Method, r.URL.Path, "", "").
		WithError(err)
	rl.logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
}
