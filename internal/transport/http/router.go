package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/govscheme-portal/internal/application/auth"
	"github.com/govscheme-portal/internal/application/notification"
	"github.com/govscheme-portal/internal/application/scheme"
	"github.com/govscheme-portal/internal/application/user"
	"github.com/govscheme-portal/internal/config"
	"github.com/govscheme-portal/internal/domain"
	jwtinfra "github.com/govscheme-portal/internal/infrastructure/jwt"
	"github.com/govscheme-portal/internal/infrastructure/metrics"
	"github.com/govscheme-portal/internal/infrastructure/smtp"
	"github.com/govscheme-portal/internal/infrastructure/sns"
	"github.com/govscheme-portal/internal/transport/http/handler"
	appmiddleware "github.com/govscheme-portal/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	SchemeRepo  SchemeRepository
	Documents   ObjectStore   // nil disables document uploads
	Announcer   sns.Publisher // nil disables scheme announcements
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Queue       TaskQueue
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // defaults to prometheus.DefaultGatherer
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	authRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.AuthRatePerSec), cfg.AuthRateBurst)

	composer := notification.NewComposer(cfg.AppURL)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		JWTProvider: deps.JWTProvider,
		Mailer:      deps.Mailer,
		Composer:    composer,
		Queue:       deps.Queue,
		Metrics:     deps.Metrics,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo})
	schemeSvc := scheme.NewService(scheme.ServiceDeps{
		SchemeRepo: deps.SchemeRepo,
		UserRepo:   deps.UserRepo,
		Documents:  deps.Documents,
		Announcer:  deps.Announcer,
		Queue:      deps.Queue,
		Mailer:     deps.Mailer,
		Composer:   composer,
		Metrics:    deps.Metrics,

		FanoutConcurrency: cfg.FanoutConcurrency,
	})

	healthH := handler.NewHealthHandler(cfg.AppEnv)
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	schemeH := handler.NewSchemeHandler(schemeSvc)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Get("/health-check/{action}", healthH.Ping)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// ── Registration and OTP flow (public, rate-limited) ────────────────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRL.Limit)
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/verify-otp", authH.VerifyOTP)
			r.Post("/resend-otp", authH.ResendOTP)
		})

		// ── Profiles (self or admin) ────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
		})

		r.Route("/schemes", func(r chi.Router) {
			// ── Public catalog ──────────────────────────────────────────────
			r.Get("/public/all", schemeH.ListActive)
			r.Get("/public/search", schemeH.Search)
			r.Get("/public/category/{category}", schemeH.ListByCategory)
			r.Get("/public/{id}", schemeH.Get)
			r.Get("/eligible/{userId}", schemeH.ListEligible)

			// ── Admin-only routes ───────────────────────────────────────────
			r.Route("/admin", func(r chi.Router) {
				r.Use(authMw)
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))
				r.Post("/create", schemeH.Create)
				r.Put("/update/{id}", schemeH.Update)
				r.Delete("/delete/{id}", schemeH.Delete)
				r.Post("/{id}/documents/{kind}", schemeH.UploadDocument)
			})
		})
	})

	return r
}
