package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorBody es el shape de todos los errores de la API: {"error": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON escribe v como JSON con el status dado.
// Lo usan handlers y middlewares.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// Mensajes públicos. Nunca llevan detalle interno.
const (
	MsgUnauthorized    = "Unauthorized"
	MsgNotFound        = "Not found"
	MsgInternal        = "Internal server error"
	MsgPayloadTooLarge = "Payload too large"
)

func Unauthorized(w http.ResponseWriter) { Error(w, http.StatusUnauthorized, MsgUnauthorized) }

func NotFound(w http.ResponseWriter, _ *http.Request) { Error(w, http.StatusNotFound, MsgNotFound) }

func Internal(w http.ResponseWriter) { Error(w, http.StatusInternalServerError, MsgInternal) }
