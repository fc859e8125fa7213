package profiles

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mamacare-api/internal/middleware"
	"mamacare-api/internal/platform/logger"
	"mamacare-api/internal/platform/metrics"
	"mamacare-api/internal/platform/respond"
)

const (
	DefaultMaxBodyBytes = 100 << 10

	msgSaved         = "Pregnancy profile saved successfully"
	msgEmailRequired = "Email is required"
	msgInvalidJSON   = "Invalid JSON body"
)

type HandlerOptions struct {
	MaxBodyBytes int64
	Log          logger.Logger
	Metrics      *metrics.Metrics // opcional

	// Driver se usa solo como label de métricas.
	Driver string
}

func RegisterRoutes(r chi.Router, svc *Service, opts HandlerOptions) {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	r.With(middleware.RequireAuth).Post("/pregnancy-profile", createProfileHandler(svc, opts))
}

// createProfileResponse: data es el documento guardado + id.
type createProfileResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// createProfileHandler godoc
// @Summary Guardar perfil de embarazo
// @Description Guarda el perfil enviado (JSON libre) asociado al usuario autenticado. Solo `email` es obligatorio. `userId`, `createdAt` y `updatedAt` los asigna el servidor. Autenticación: `Authorization: Bearer <session token de Clerk>` o `X-Debug-User-ID` (dev).
// @Tags profiles
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token de sesión"
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param payload body object true "Perfil; debe incluir email"
// @Success 201 {object} createProfileResponse
// @Failure 400 {object} respond.ErrorBody "Email is required / Invalid JSON body"
// @Failure 401 {object} respond.ErrorBody "Unauthorized"
// @Failure 413 {object} respond.ErrorBody "Payload too large"
// @Failure 500 {object} respond.ErrorBody "Internal server error"
// @Router /pregnancy-profile [post]
func createProfileHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		payload, status, msg := decodePayload(w, r, opts.MaxBodyBytes)
		if status != 0 {
			respond.Error(w, status, msg)
			return
		}

		p, err := svc.Create(r.Context(), userID, payload)
		if err != nil {
			switch {
			case errors.Is(err, ErrEmailRequired):
				respond.Error(w, http.StatusBadRequest, msgEmailRequired)
			case errors.Is(err, ErrInvalidInput):
				respond.Unauthorized(w)
			default:
				middleware.Log(r.Context(), opts.Log).Error("failed to save pregnancy profile", map[string]any{
					"error":   err,
					"user_id": userID,
				})
				if opts.Metrics != nil {
					opts.Metrics.ProfileStoreErrors.WithLabelValues(opts.Driver).Inc()
				}
				respond.Internal(w)
			}
			return
		}

		if opts.Metrics != nil {
			opts.Metrics.ProfilesCreatedTotal.Inc()
		}

		// Mismo id bajo "_id" (como queda en Mongo) y "id".
		data := p.Document()
		data[FieldMongoID] = p.ID
		data[FieldID] = p.ID

		respond.JSON(w, http.StatusCreated, createProfileResponse{
			Success: true,
			Message: msgSaved,
			Data:    data,
		})
	}
}

// decodePayload lee el body como JSON libre. Body vacío, no-objeto o con
// Content-Type distinto de application/json => {}.
// Devuelve status != 0 si hay que cortar.
func decodePayload(w http.ResponseWriter, r *http.Request, max int64) (map[string]any, int, string) {
	if !isJSON(r.Header.Get("Content-Type")) {
		return map[string]any{}, 0, ""
	}
	r.Body = http.MaxBytesReader(w, r.Body, max)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		status, msg := decodeStatus(err)
		return nil, status, msg
	}
	// Nada más después del valor.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err != nil {
			status, msg := decodeStatus(err)
			return nil, status, msg
		}
		return nil, http.StatusBadRequest, msgInvalidJSON
	}

	payload, ok := raw.(map[string]any)
	if !ok || payload == nil {
		payload = map[string]any{}
	}
	return payload, 0, ""
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func decodeStatus(err error) (int, string) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, respond.MsgPayloadTooLarge
	}
	return http.StatusBadRequest, msgInvalidJSON
}
