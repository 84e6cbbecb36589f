package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyloop/studyloop-backend/api/controllers"
	accesscontrollers "github.com/studyloop/studyloop-backend/api/controllers/access"
	authcontrollers "github.com/studyloop/studyloop-backend/api/controllers/auth"
	"github.com/studyloop/studyloop-backend/api/middleware"
	"github.com/studyloop/studyloop-backend/internal/accesscodes"
	"github.com/studyloop/studyloop-backend/internal/entitlements"
	"github.com/studyloop/studyloop-backend/internal/wallet"
	"github.com/studyloop/studyloop-backend/pkg/auth/session"
	"github.com/studyloop/studyloop-backend/pkg/config"
	"github.com/studyloop/studyloop-backend/pkg/db"
	"github.com/studyloop/studyloop-backend/pkg/logger"
	"github.com/studyloop/studyloop-backend/pkg/metrics"
	"github.com/studyloop/studyloop-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Cfg            *config.Config
	Logg           *logger.Logger
	DBPinger       db.Pinger
	RedisClient    *redis.Client
	Sessions       session.AccessSessionChecker
	SessionManager *session.Manager
	Metrics        *metrics.HTTPMetrics
	MetricsHandler prometheus.Gatherer
	AccessCodes    accesscodes.Service
	Entitlements   entitlements.Service
	Wallet         wallet.Service
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logg),
		middleware.RequestID(d.Logg),
		middleware.Logging(d.Logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(),
	)

	pingers := []db.Pinger{d.DBPinger}
	if d.RedisClient != nil {
		pingers = append(pingers, d.RedisClient)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Cfg))
		r.Get("/ready", controllers.HealthReady(d.Cfg, d.Logg, pingers...))
	})

	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.MetricsHandler, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(d.Logg))
	})

	if d.SessionManager != nil {
		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Post("/refresh", authcontrollers.Refresh(d.Cfg.JWT, d.SessionManager, d.Logg))
			r.Post("/logout", authcontrollers.Logout(d.Cfg.JWT, d.SessionManager, d.Logg))
		})
	}

	redeemPolicy := middleware.NewRateLimitPolicy(
		"redeem",
		d.Cfg.Access.RedeemWindow,
		d.Cfg.Access.RedeemIPLimit,
		d.Cfg.Access.RedeemUserLimit,
	)

	r.Route("/api/v1/access", func(r chi.Router) {
		r.Use(middleware.Auth(d.Cfg.JWT, d.Sessions, d.Logg))

		r.Group(func(r chi.Router) {
			if d.RedisClient != nil {
				r.Use(middleware.RateLimit(redeemPolicy, d.RedisClient, d.Logg))
			}
			r.Post("/redeem", accesscontrollers.Redeem(d.Entitlements, d.Logg))
			r.Post("/redeem-video", accesscontrollers.RedeemVideo(d.Entitlements, d.Logg))
		})

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/courses/{courseId}", accesscontrollers.CourseAccess(d.Entitlements, d.Logg))
		r.Get("/courses/{courseId}/lessons/{lessonId}/videos/{videoId}", accesscontrollers.VideoAccess(d.Entitlements, d.Logg))
		r.Get("/wallet", accesscontrollers.WalletHistory(d.Wallet, d.Logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(d.Cfg.JWT, d.Sessions, d.Logg))
		r.Use(middleware.RequirePrivileged(d.Logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/access/codes", func(r chi.Router) {
			r.Post("/", accesscontrollers.CodesGenerate(d.AccessCodes, d.Logg))
			r.Get("/", accesscontrollers.CodesList(d.AccessCodes, d.Logg))
			r.Delete("/{codeId}", accesscontrollers.CodeDelete(d.AccessCodes, d.Logg))
			r.Post("/bulk-delete", accesscontrollers.CodesBulkDelete(d.AccessCodes, d.Logg))
		})
	})

	return r
}
