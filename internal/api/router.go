package api

import (
	"github.com/accshift/accshift/internal/logging"
	"github.com/accshift/accshift/internal/switcher"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the local API router.
func NewRouter(sw *switcher.Switcher) chi.Router {
	r := chi.NewRouter()
	r.Use(logging.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", ListAccountsHandler(sw))
		r.Post("/accounts/{name}/switch", SwitchHandler(sw))
		r.Post("/accounts/{name}/refresh", RefreshAccountHandler(sw))
		r.Get("/accounts/{name}/health", HealthHandler(sw))
		r.Delete("/accounts/{name}", DeleteAccountHandler(sw))
		r.Post("/refresh", RefreshAllHandler(sw))
		r.Post("/identity/rotate", RotateIdentityHandler(sw))
		r.Get("/version", VersionHandler())
	})

	return r
}
