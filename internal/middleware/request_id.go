package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"mamacare-api/internal/platform/logger"
)

const loggerKey ctxKey = "logger"

// RequestLogger cuelga del contexto un logger con el request_id de chimw.RequestID.
// Debe ir después de chimw.RequestID.
func RequestLogger(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if id := chimw.GetReqID(r.Context()); id != "" {
				l = base.With(map[string]any{"request_id": id})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey, l)))
		})
	}
}

// Log devuelve el logger del request o fallback si no hay.
func Log(ctx context.Context, fallback logger.Logger) logger.Logger {
	if l, ok := ctx.Value(loggerKey).(logger.Logger); ok {
		return l
	}
	return fallback
}
