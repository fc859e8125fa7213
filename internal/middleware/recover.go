package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"mamacare-api/internal/platform/logger"
	"mamacare-api/internal/platform/respond"
)

// Recover reemplaza a chimw.Recoverer: loguea el panic con stack y responde
// el 500 con el mismo shape JSON que el resto de la API.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// http.ErrAbortHandler debe seguir propagándose.
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("panic recovered", map[string]any{
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"request_id": chimw.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
				})

				if r.Header.Get("Connection") != "Upgrade" {
					respond.Internal(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
