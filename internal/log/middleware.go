package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, falling back to the slog default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		base:      slog.Default(),
		component: "unknown",
	}
}

// Middleware stores a request logger enriched with the request id and logs
// each completed request.
func Middleware(logger *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger
			if extractRequestID != nil {
				if id := extractRequestID(r); id != "" {
					reqLogger = logger.With(NewFields().WithRequestID(id).ToSlice()...)
				}
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(NewContext(r.Context(), reqLogger)))
			LogHTTPEnd(r.Context(), reqLogger, r, rec.status, time.Since(start).Milliseconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogHTTPEnd logs a completed request, at warn for 4xx and error for 5xx.
func LogHTTPEnd(ctx context.Context, logger *Logger, r *http.Request, statusCode int, durationMs int64) {
	level := slog.LevelInfo
	if statusCode >= 500 {
		level = slog.LevelError
	} else if statusCode >= 400 {
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(r.RemoteAddr)
	logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogLineItemChanged records a successful mutation of a line-item.
func LogLineItemChanged(ctx context.Context, op string, userID int64, kind string, itemID, amountCents int64) {
	fields := NewFields().
		WithLineItem(userID, kind, itemID, amountCents).
		WithOperation(op)
	FromContext(ctx).InfoContext(ctx, "Line-item "+op+"d", fields.ToSlice()...)
}
