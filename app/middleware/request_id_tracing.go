package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	applogger "github.com/zuricore/identity-service/app/logger"
)

const ctxRequestID ctxKey = "requestID"

// RequestIDTracing propagates the request ID through the context, echoes it in
// the X-Request-ID response header and binds a request-scoped logger.
func RequestIDTracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = strconv.FormatUint(middleware.NextRequestID(), 10)
			}

			w.Header().Set("X-Request-ID", requestID)

			log := applogger.WithRequestID(requestID)
			ctx := log.WithContext(r.Context())
			ctx = context.WithValue(ctx, ctxRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext retrieves the request ID set by RequestIDTracing.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxRequestID).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns the request-scoped logger, falling back to the
// global one outside a request.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	log := zerolog.Ctx(ctx)
	if log.GetLevel() == zerolog.Disabled {
		return applogger.Logger
	}
	return *log
}
