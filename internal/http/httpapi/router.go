package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"photobooth/internal/http/handlers"
	"photobooth/internal/infra"
	"photobooth/internal/middleware"
)

// Options configures the router middleware.
type Options struct {
	Logger             infra.Logger
	CORSAllowedOrigins []string
	AdminJWTSecret     string
	RateLimitPerMin    int
	SlowRequest        time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID(opts.Logger),
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.SlowRequest),
		middleware.CORS(opts.CORSAllowedOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/apply-effects", app.ApplyEffects)
	r.Post("/save-processed", app.SaveProcessed)

	r.Get("/screens/{screenId}/effects", app.ScreenEffects)
	r.Get("/events/{eventId}/photos", app.EventPhotos)
	r.Route("/photos/{id}", func(r chi.Router) {
		r.Get("/qr", app.PhotoQR)
		r.Post("/email", app.EmailPhoto)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(opts.AdminJWTSecret))
		r.Route("/effects", func(r chi.Router) {
			r.Get("/", app.AdminListEffects)
			r.Post("/", app.AdminCreateEffect)
			r.Get("/{id}", app.AdminGetEffect)
			r.Put("/{id}", app.AdminUpdateEffect)
			r.Delete("/{id}", app.AdminDeleteEffect)
		})
		r.Put("/screens/{screenId}/groups/{group}", app.AdminSetGroup)
		r.Put("/screens/{screenId}/effects", app.AdminSetScreenEffects)
		r.Get("/events/{eventId}/export", app.AdminExportEvent)
	})

	return r
}
