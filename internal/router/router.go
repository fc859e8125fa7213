package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "mamacare-api/docs"

	mem "mamacare-api/internal/adapters/storage/memory"
	"mamacare-api/internal/domain/profiles"
	"mamacare-api/internal/middleware"
	"mamacare-api/internal/platform/logger"
	"mamacare-api/internal/platform/metrics"
	"mamacare-api/internal/platform/respond"
	"mamacare-api/internal/ports/auth"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si no viene, in-memory.
	Profiles    profiles.Repository
	StoreDriver string

	Logger  logger.Logger    // nil => Nop
	Metrics *metrics.Metrics // nil => sin /metrics

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

type healthResponse struct {
	Status string `json:"status"`
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.AccessLog(log, opts.Metrics))
	r.Use(middleware.Recover(log))
	r.Use(middleware.CORS(opts.CORSAllowedOrigins))

	r.Use(middleware.AuthContext(opts.AuthVerifier, log))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	repo := opts.Profiles
	driver := opts.StoreDriver
	if repo == nil {
		repo = mem.NewProfileRepo()
		driver = "memory"
	}
	profilesSvc := profiles.NewService(repo)

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/health", healthHandler)

		profiles.RegisterRoutes(ar, profilesSvc, profiles.HandlerOptions{
			MaxBodyBytes: opts.MaxBodyBytes,
			Log:          log,
			Metrics:      opts.Metrics,
			Driver:       driver,
		})

		// Todo lo demás bajo /api (path o método) => 404 JSON.
		ar.NotFound(respond.NotFound)
		ar.MethodNotAllowed(respond.NotFound)
	})

	return r
}

// healthHandler godoc
// @Summary Health check
// @Description Siempre responde {"status":"ok"}. Sin auth.
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
