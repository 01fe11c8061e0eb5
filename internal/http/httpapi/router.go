package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"styliq/internal/http/handlers"
	"styliq/internal/infra"
	"styliq/internal/middleware"
)

// Options tunes the middleware stack.
type Options struct {
	Logger          infra.Logger
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/personas", app.ListPersonas)

	r.Route("/v1/consultations", func(r chi.Router) {
		// Only the hosted-model calls are rate limited.
		limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
		r.With(limited).Post("/", app.CreateConsultation)
		r.Get("/{id}", app.GetConsultation)
		r.Delete("/{id}", app.DeleteConsultation)
		r.With(limited).Post("/{id}/visualization", app.CreateVisualization)
	})

	return r
}
