// Package httpapi assembles the chi router and the middleware chain.
package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafey804/flipfilex-sub000/internal/http/handlers"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
	"github.com/rafey804/flipfilex-sub000/internal/infra/geoip"
	"github.com/rafey804/flipfilex-sub000/internal/middleware"
)

// routePattern reports the chi route template for metric labels, so
// "/download/{uuid}.pdf" does not explode label cardinality.
func routePattern(r *stdhttp.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if p := ctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger, geo geoip.CountryResolver) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Logger(logger, geo),
		middleware.Metrics(routePattern),
	)

	r.Route("/convert", func(r chi.Router) {
		r.Post("/{kind}", app.Convert)
		r.Get("/{kind}/progress/{job_id}", app.Progress)
	})

	r.Get("/download/*", app.Download)
	r.Get("/health", app.Health)
	r.Get("/converters", app.Converters)
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.Handler())

	return r
}
