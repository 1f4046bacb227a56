package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrcore/internal/audit"
	"hrcore/internal/auth"
	"hrcore/internal/config"
	"hrcore/internal/httpserver/handlers"
	"hrcore/internal/mail"
)

// NewRouter wires the auth endpoints and the RBAC guard pipeline. rl is the
// access-token revocation list; the in-memory default is fine for a single
// instance.
func NewRouter(db *gorm.DB, lg *zap.SugaredLogger, cfg config.Config, rl auth.RevocationList, mailer mail.Mailer) http.Handler {
	issuer := auth.Issuer{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	recorder := audit.Recorder{DB: db, Lg: lg}
	a := handlers.Auth{
		DB:       db,
		Lg:       lg,
		Issuer:   issuer,
		Ledger:   auth.Ledger{DB: db},
		Revoked:  rl,
		Audit:    recorder,
		Mailer:   mailer,
		ResetTTL: cfg.ResetTTL,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	// Credential-bearing endpoints get a per-IP rate limit against
	// credential stuffing and token grinding.
	r.Group(func(pub chi.Router) {
		pub.Use(httprate.LimitByIP(20, time.Minute))
		pub.Post("/auth/register", a.Register())
		pub.Post("/auth/login", a.Login())
		pub.Post("/auth/token/refresh", a.Refresh())
		pub.Post("/auth/forgot-password", a.ForgotPassword())
		pub.Post("/auth/reset-password", a.ResetPassword())
	})

	r.Group(func(protected chi.Router) {
		protected.Use(auth.Authenticate(db, rl, issuer))
		protected.Post("/auth/logout", a.Logout())
		protected.Get("/auth/profile", a.GetProfile())
		protected.Put("/auth/profile", a.UpdateProfile())
		protected.Post("/auth/change-password", a.ChangePassword())
		protected.Get("/audit-logs", handlers.AuditLogs(db, lg))

		protected.With(auth.RequirePermission(db, "role_read")).Get("/roles", handlers.ListRoles(db, lg))
		protected.With(auth.RequirePermission(db, "role_read")).Get("/roles/{id}", handlers.GetRole(db, lg))
		protected.With(auth.RequirePermission(db, "role_write")).Post("/roles", handlers.CreateRole(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "role_write")).Put("/roles/{id}", handlers.UpdateRole(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "role_delete")).Delete("/roles/{id}", handlers.DeleteRole(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "permission_read")).Get("/permissions", handlers.ListPermissions(db, lg))

		protected.With(auth.RequirePermission(db, "user_read")).Get("/users", handlers.ListUsers(db, lg))
		protected.With(auth.RequirePermission(db, "user_read")).Get("/users/{id}", handlers.GetUser(db, lg))
		protected.With(auth.RequirePermission(db, "user_write")).Post("/users", handlers.CreateUser(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "user_write")).Put("/users/{id}", handlers.UpdateUser(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "user_delete")).Delete("/users/{id}", handlers.DeleteUser(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "user_write")).Post("/users/{id}/roles", handlers.AssignRole(db, lg, recorder))
		protected.With(auth.RequirePermission(db, "user_write")).Delete("/users/{id}/roles/{role_id}", handlers.RemoveRole(db, lg, recorder))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
