package middleware

import (
	"context"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"crowdgov/internal/service"
	"crowdgov/pkg/errors"
	"crowdgov/pkg/logger"
)

// IdempotencyHeader carries the client's key for a mutating request
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// Idempotency refuses a replayed Idempotency-Key with 409. Requests without the header
// pass through. Must run after Auth so keys are scoped to the principal.
// Operations either fully apply or leave no effect, so a request that ends in a 4xx or
// 5xx releases its key and the client can retry it once the cause is fixed.
func Idempotency(idem service.IdempotencyService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeErrorResponse(w, r, errors.NewValidationError("Idempotency-Key is too long", nil), logger)
				return
			}

			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authentication required"), logger)
				return
			}

			acquired, err := idem.TryLock(r.Context(), principal, key)
			if err != nil {
				logger.WithError(err).Error("Idempotency check failed")
				writeErrorResponse(w, r, errors.NewInternalError("Idempotency check failed", err), logger)
				return
			}
			if !acquired {
				writeErrorResponse(w, r, errors.NewConflictError("Request with this Idempotency-Key was already processed"), logger)
				return
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusBadRequest {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
				defer cancel()
				if err := idem.Release(ctx, principal, key); err != nil {
					logger.WithError(err).Warn("Failed to release idempotency key")
				}
			}
		})
	}
}
