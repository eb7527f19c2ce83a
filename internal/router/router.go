// Package router sets up all HTTP routes and middleware chains for the
// page-builder API. Routes are split into a public group, an authenticated
// group open to every user, and a builder group for admins and editors.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pagebuilder/internal/handlers"
	"pagebuilder/internal/middleware"
	"pagebuilder/internal/models"
)

// maxRequestBytes bounds every request body before handlers see it.
const maxRequestBytes = 4 << 20

// Deps carries the handler groups and middleware settings.
type Deps struct {
	JWTSecret []byte

	Builder *handlers.Builder
	Public  *handlers.Public
	Events  *handlers.Events
	Account *handlers.Account

	// IPLimiter throttles every /api request by client address.
	// UserLimiter throttles authenticated requests per user. Either may be
	// nil to disable it.
	IPLimiter   *middleware.RateLimiter
	UserLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(chimw.RequestSize(maxRequestBytes))

	// Health check, no auth.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		if d.IPLimiter != nil {
			r.Use(d.IPLimiter.Middleware)
		}

		// Published output for the rendering front end.
		r.Get("/published/{handle}", d.Public.Published)

		// Everything else requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.JWTSecret))
			if d.UserLimiter != nil {
				r.Use(d.UserLimiter.Middleware)
			}

			r.Get("/user", d.Account.Me)

			// Events and registrations.
			r.Route("/events", func(r chi.Router) {
				r.Get("/", d.Events.List)
				r.Post("/", d.Events.Create)
				r.Route("/{event}", func(r chi.Router) {
					r.Get("/", d.Events.Show)
					r.Put("/", d.Events.Update)
					r.Patch("/", d.Events.Update)
					r.Delete("/", d.Events.Delete)

					r.Get("/attendees", d.Events.AttendeesList)
					r.Post("/attendees", d.Events.AttendeeRegister)
					r.Delete("/attendees/{attendee}", d.Events.AttendeeCancel)
				})
			})

			// Type registry, readable by every user.
			r.Get("/registry", d.Builder.Registry)
			r.Get("/registry/components", d.Builder.ComponentTypes)
			r.Get("/registry/sections", d.Builder.SectionTypes)

			// Page builder, admins and editors only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleEditor))

				r.Post("/compile", d.Builder.CompileDocument)

				r.Route("/templates", func(r chi.Router) {
					r.Get("/", d.Builder.TemplatesList)
					r.Post("/", d.Builder.TemplateCreate)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", d.Builder.TemplateShow)
						r.Put("/", d.Builder.TemplateUpdate)
						r.Delete("/", d.Builder.TemplateDelete)
						r.Patch("/status", d.Builder.TemplateSetStatus)

						r.Get("/structure", d.Builder.StructureShow)
						r.Put("/structure", d.Builder.StructureSave)
						r.Post("/structure/validate", d.Builder.StructureValidate)

						r.Get("/revisions", d.Builder.RevisionsList)
						r.Get("/revisions/{version}", d.Builder.RevisionShow)
						r.Post("/revisions/{version}/restore", d.Builder.RevisionRestore)

						r.Get("/compile", d.Builder.TemplateCompile)
						r.Post("/publish", d.Builder.TemplatePublish)
					})
				})

				r.Route("/blueprints", func(r chi.Router) {
					r.Get("/", d.Builder.BlueprintsList)
					r.Post("/", d.Builder.BlueprintCreate)
					r.Get("/{id}", d.Builder.BlueprintShow)
					r.Put("/{id}/schema", d.Builder.BlueprintSchemaUpdate)
					r.Get("/{id}/versions", d.Builder.BlueprintVersionsList)
					r.Post("/{id}/versions", d.Builder.BlueprintVersionCreate)
				})

				r.Get("/blueprint-versions/{id}", d.Builder.BlueprintVersionShow)
				r.Delete("/blueprint-versions/{id}", d.Builder.BlueprintVersionDelete)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message":"Not found."}`)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, `{"message":"Method not allowed."}`)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, `{"status":"ok"}`)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
