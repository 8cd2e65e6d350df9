// Package middleware provides HTTP middleware for a2agate.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/a2agate/internal/logger"
)

const (
	headerRequestID     = "X-Request-ID"
	headerCorrelationID = "X-Correlation-ID"
)

// RequestID is HTTP middleware that extracts X-Request-ID from the request
// header or generates a new one. The ID is stored in the context and set
// on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationID stores an inbound X-Correlation-ID header in the request
// context. Nothing is generated here: the router decides the effective ID
// when no envelope or header supplies one.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(headerCorrelationID); id != "" {
			r = r.WithContext(logger.WithCorrelationID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
