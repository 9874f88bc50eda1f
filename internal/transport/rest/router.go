package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/invoice"
	"github.com/opsledger/opsledger/internal/project"
	"github.com/opsledger/opsledger/internal/stats"
	"github.com/opsledger/opsledger/internal/timeentry"
	"github.com/opsledger/opsledger/internal/transport/middleware"
	"github.com/opsledger/opsledger/internal/transport/swagger"
	"github.com/opsledger/opsledger/internal/user"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth      *auth.Handler
	User      *user.Handler
	Project   *project.Handler
	Invoice   *invoice.Handler
	TimeEntry *timeentry.Handler
	Stats     *stats.Handler
}

// RegisterAllRoutes mounts the API under /api/v1. Role and ownership
// checks live in the services; the router only decides which routes
// require an authenticated principal.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
			sr.Post("/register", h.User.Register)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/me", h.User.Me)
				ur.Patch("/me/password", h.User.ChangePassword)

				ur.Get("/", h.User.List)
				ur.Post("/", h.User.Create)
				ur.Get("/{id}", h.User.Get)
				ur.Patch("/{id}", h.User.Update)
				ur.Post("/{id}/approve", h.User.Approve)
				ur.Post("/{id}/roles/reset", h.User.ResetRoles)
				ur.Post("/{id}/password/reset", h.User.ResetPassword)
			})

			pr.Route("/projects", func(sr chi.Router) {
				sr.Post("/", h.Project.Create)
				sr.Get("/", h.Project.List)
				sr.Get("/{id}", h.Project.Get)
				sr.Patch("/{id}", h.Project.Update)
				sr.Post("/{id}/complete", h.Project.Complete)
				sr.Delete("/{id}", h.Project.Delete)
			})

			pr.Route("/invoices", func(ir chi.Router) {
				ir.Post("/", h.Invoice.Create)
				ir.Get("/", h.Invoice.List)
				ir.Get("/{id}", h.Invoice.Get)
				ir.Patch("/{id}", h.Invoice.Update)
				ir.Post("/{id}/pay", h.Invoice.MarkPaid)
				ir.Post("/{id}/payments", h.Invoice.ApplyPayment)
				ir.Post("/{id}/cancel", h.Invoice.Cancel)
				ir.Delete("/{id}", h.Invoice.Delete)
			})

			pr.Route("/time-entries", func(tr chi.Router) {
				tr.Post("/clock-in", h.TimeEntry.ClockIn)
				tr.Post("/clock-out", h.TimeEntry.ClockOut)
				tr.Get("/", h.TimeEntry.List)
				tr.Delete("/{id}", h.TimeEntry.Delete)
			})

			pr.Route("/stats", func(sr chi.Router) {
				sr.Get("/dashboard", h.Stats.Dashboard)
				sr.Get("/hours", h.Stats.Hours)
			})
		})
	})
}
