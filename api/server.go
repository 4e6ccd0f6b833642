/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. Logger:     zap request logging (logger.Middleware)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend
  6. Actor:      X-User-ID resolved to an active account (under /api)

ROUTE GROUPS:
  /api/health                     Liveness, no actor required
  /api/me                         The acting account
  /api/officers/*                 Officer directory, credits, balance
  /api/users/*                    Login accounts
  /api/leaves/*                   Leave workflow
  /api/vacations/*                Vacation blocks
  /api/events/*                   Unit agenda
  /api/notifications/*            Inbox of the acting account
  /api/admin/*                    Manual vacation sweep
  /api/scenarios/*                Demo data and reset (development only, no actor)

SECURITY NOTE:
  X-User-ID identifies the caller; authenticating that header is the job of
  whatever sits in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/leave-engine/logger"
)

// RouterOptions are the environment-dependent parts of the router.
type RouterOptions struct {
	AllowedOrigins []string

	// DevRoutes mounts /api/scenarios.
	DevRoutes bool

	// Sweeper backs POST /api/admin/vacations/complete; nil runs the sweep
	// inline on the handler's vacation service.
	Sweeper *VacationSweeper
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(h.log().Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(h.ResolveActor)

			r.Get("/me", h.Me)

			r.Route("/officers", func(r chi.Router) {
				r.Get("/", h.ListOfficers)
				r.Post("/", h.SaveOfficer)
				r.Get("/{id}", h.GetOfficer)
				r.Put("/{id}", h.SaveOfficer)
				r.Get("/{id}/balance", h.GetBalance)
				r.Get("/{id}/credits", h.ListCredits)
				r.Post("/{id}/credits", h.GrantCredit)
				r.Get("/{id}/vacation-availability", h.GetVacationAvailability)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Post("/", h.SaveUser)
				r.Get("/{id}", h.GetUser)
				r.Put("/{id}", h.SaveUser)
			})

			r.Route("/leaves", func(r chi.Router) {
				r.Get("/", h.ListLeaves)
				r.Post("/", h.CreateLeave)
				r.Get("/{id}", h.GetLeave)
				r.Post("/{id}/sergeant-decision", h.SergeantDecision)
				r.Post("/{id}/admin-decision", h.AdminDecision)
				r.Post("/{id}/exchange", h.ExchangeLeave)
				r.Post("/{id}/delete", h.DeleteLeave)
				r.Post("/{id}/restore", h.RestoreLeave)
				r.Get("/{id}/comments", h.ListComments)
				r.Post("/{id}/comments", h.AddComment)
				r.Get("/{id}/history", h.ListLeaveHistory)
			})

			r.Route("/vacations", func(r chi.Router) {
				r.Get("/", h.ListVacations)
				r.Post("/", h.ScheduleVacation)
				r.Get("/{id}", h.GetVacation)
				r.Post("/{id}/request-change", h.RequestVacationChange)
				r.Post("/{id}/reschedule", h.RescheduleVacation)
				r.Post("/{id}/cancel", h.CancelVacation)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.CreateEvent)
				r.Get("/{id}", h.GetEvent)
				r.Delete("/{id}", h.DeleteEvent)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/{id}/read", h.MarkNotificationRead)
			})

			r.Post("/admin/vacations/complete", h.CompleteVacations(opts.Sweeper))
		})

		// Scenario routes replace the whole data set, so they cannot
		// require an account that may not exist yet.
		if opts.DevRoutes {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	return r
}
