package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

// ContextKeyRequestID carries the chi request ID for handlers that log
// outside the middleware chain (the webhook's detached fulfillment run,
// for example).
const ContextKeyRequestID contextKey = "request_id"

// AttachRequestMetadata copies the chi request ID into the context under
// a key of our own, so handlers can read it without importing the chi
// middleware package.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
