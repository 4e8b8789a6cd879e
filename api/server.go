/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zerolog line per request, request-scoped logger in ctx
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/packages/*       Package publishing
  /api/attestations/*   Attestation events and status
  /api/employee/*       Employee view and attestation
  /api/admin/*          Admin session (X-Admin-Passcode)

SECURITY NOTE:
  Admin routes are guarded by a single static passcode. Package and
  employee routes are public, as the employee picker is.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Request logging and admin passcode
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions configure NewRouter.
type RouterOptions struct {
	AdminPasscode  string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", AdminPasscodeHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Package routes
		r.Route("/packages", func(r chi.Router) {
			r.Post("/", h.PublishPackage)
			r.Delete("/", h.DeletePackages)
			r.Get("/latest", h.LatestPackage)
			r.Delete("/latest", h.DeleteLatestPackage)
		})

		// Attestation routes
		r.Route("/attestations", func(r chi.Router) {
			r.Post("/", h.RecordAttestation)
			r.Get("/status", h.AttestationStatus)
		})

		// Employee routes
		r.Route("/employee", func(r chi.Router) {
			r.Get("/", h.EmployeeRoster)
			r.Get("/{id}", h.EmployeeView)
			r.Post("/{id}/attest", h.EmployeeAttest)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(opts.AdminPasscode))
			r.Post("/assignments", h.UploadAssignments)
			r.Post("/time-detail", h.UploadTimeDetail)
			r.Put("/period", h.SetPeriod)
			r.Get("/summary", h.Summary)
			r.Post("/publish", h.PublishCurrent)
			r.Get("/report", h.Report)
			r.Get("/attestations", h.AdminAttestations)
			r.Post("/reset", h.ResetSession)
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
