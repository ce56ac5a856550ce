package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/port"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DevSignIn issues access tokens for the development backend.
type DevSignIn interface {
	SignIn(ctx context.Context, email, password string) (*domain.TokenResponse, error)
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Store        port.Store
	Health       Pinger
	Resolver     *guard.Resolver
	Dashboard    *service.DashboardService
	Projects     *service.ProjectsService
	Provisioning *service.ProvisioningService
	Notifier     service.Notifier
	// DevTokens is nil unless the memory backend is active.
	DevTokens DevSignIn

	AuthEntryPoint     string
	CORSAllowedOrigins []string
	Metrics            *observability.Metrics
	Logger             *zap.Logger
}

// hookDeps builds request-scoped hook collaborators. The returned recorder
// holds the notifications raised while serving the request.
func (d *Deps) hookDeps() (service.HookDeps, *service.Recorder) {
	rec := service.NewRecorder(d.Notifier)
	deps := service.HookDeps{
		Store:     d.Store,
		Dashboard: d.Dashboard,
		Notifier:  rec,
		Metrics:   d.Metrics,
		Logger:    d.Logger,
	}
	if d.Resolver != nil {
		deps.Identities = d.Resolver
	}
	return deps, rec
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d *Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, d.Metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Health, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- Provisioning function ---
	r.Route("/functions/v1/create-user", func(r chi.Router) {
		r.MethodNotAllowed(provisioningMethodNotAllowedHandler())
		r.Options("/", provisioningPreflightHandler())
		r.Post("/", provisioningHandler(d.Provisioning, logger))
	})

	staff := guard.Require(d.AuthEntryPoint, domain.RoleAdmin, domain.RoleTeamMember)
	admin := guard.Require(d.AuthEntryPoint, domain.RoleAdmin)

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
		r.Use(guard.Authenticate(d.Resolver, logger))

		if d.DevTokens != nil {
			r.Post("/dev/token", devTokenHandler(d.DevTokens, logger))
		}
		r.Post("/admin/users", provisioningHandler(d.Provisioning, logger))

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(d.AuthEntryPoint))

			r.Get("/me", getMeHandler(d, logger))
			r.Patch("/me", updateMeHandler(d, logger))

			r.Get("/dashboard", dashboardHandler(d))
			r.Get("/dashboard-config", getGlobalConfigHandler(d.Dashboard, logger))
			r.With(admin).Put("/dashboard-config", putConfigHandler(d.Dashboard, false, logger))

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", listProjectsHandler(d.Projects, logger))
				r.With(staff).Post("/", createProjectHandler(d.Projects, logger))

				r.Route("/{projectId}", func(r chi.Router) {
					r.Get("/", getProjectHandler(d.Projects, logger))
					r.With(staff).Patch("/", updateProjectHandler(d.Projects, logger))
					r.With(admin).Delete("/", deleteProjectHandler(d.Projects, logger))

					r.Get("/dashboard-config", getProjectConfigHandler(d.Projects, d.Dashboard, logger))
					r.With(staff).Put("/dashboard-config", putConfigHandler(d.Dashboard, true, logger))

					r.Get("/phases", listPhasesHandler(d))
					r.With(staff).Post("/phases", createPhaseHandler(d))
					r.With(staff).Put("/phases/order", reorderPhasesHandler(d))
					r.With(staff).Patch("/phases/{phaseId}", updatePhaseHandler(d))
					r.With(staff).Put("/phases/{phaseId}/progress", phaseProgressHandler(d))
					r.With(staff).Delete("/phases/{phaseId}", deletePhaseHandler(d))

					r.Get("/payments", listPaymentsHandler(d))
					r.With(staff).Post("/payments", createPaymentHandler(d))
					r.With(staff).Patch("/payments/{paymentId}", updatePaymentHandler(d))
					r.With(staff).Post("/payments/{paymentId}/paid", markPaidHandler(d))
					r.With(staff).Delete("/payments/{paymentId}", deletePaymentHandler(d))
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/profiles", listProfilesHandler(d))
				r.Patch("/profiles/{profileId}", updateProfileHandler(d))
				r.Delete("/profiles/{profileId}", deleteProfileHandler(d))
				r.Get("/admin/stats", adminStatsHandler(d.Metrics))
			})
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "portal-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("health: store ping failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func adminStatsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAdminSnapshot())
	}
}
