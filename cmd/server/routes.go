package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/resource-hub/pkg/hub/api"
	"github.com/tendant/resource-hub/pkg/hub/config"
)

// newRouter sets up the middleware stack and mounts the API handlers.
func newRouter(rt *config.Runtime) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rt.Metrics.Middleware)

	if len(rt.Config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.Config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Mount("/healthz", api.NewHealthHandler(rt.Ping, rt.Logger).Routes())
	r.Handle("/metrics", rt.Metrics.Handler())

	if files := api.NewFilesHandler(rt.BlobStore, rt.Logger); files != nil {
		r.Mount("/files", files.Routes())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if rt.TokenAuth != nil {
			r.Use(jwtauth.Verifier(rt.TokenAuth))
		}

		catalog := api.NewCatalogHandler(rt.Hub, rt.Logger)
		r.Get("/catalog", catalog.GetCatalog)
		r.Put("/me/profile", catalog.UpdateProfile)
		r.Mount("/materials", api.NewMaterialsHandler(rt.Hub, rt.Logger).Routes())
	})

	return r
}
