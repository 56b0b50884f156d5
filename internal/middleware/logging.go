// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package middleware provides the HTTP middleware chain for the admin
// site and the public API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"fastodigama/internal/session"
)

// responseWriter wraps http.ResponseWriter to capture status and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestLog carries fields that inner middleware fills in for the
// request's log line.
type requestLog struct {
	user string
}

const requestLogKey contextKey = "request-log"

// noteUser records the authenticated username for the enclosing Logger.
func noteUser(ctx context.Context, data *session.Data) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok && data.Authenticated() {
		rl.user = data.Username
	}
}

// Logger records one structured line per request. LoadSession further
// down the chain reports the logged-in username back to it.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		fields := &requestLog{}
		r = r.WithContext(context.WithValue(r.Context(), requestLogKey, fields))
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		if wrapped.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"bytes", wrapped.bytes,
			"duration", time.Since(start).String(),
			"remote", clientIP(r),
		}
		if fields.user != "" {
			attrs = append(attrs, "user", fields.user)
		}
		slog.Log(r.Context(), level, "http request", attrs...)
	})
}
