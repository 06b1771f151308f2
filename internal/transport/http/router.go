// Package httptransport assembles the HTTP surface: middleware chain, public
// tourist routes, and the operator routes behind JWT auth.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	alerthandler "yatra/internal/alert/handler"
	audithandler "yatra/internal/audit/handler"
	geofencehandler "yatra/internal/geofence/handler"
	ledgerhandler "yatra/internal/ledger/handler"
	notifyhandler "yatra/internal/notify/handler"
	"yatra/internal/platform/middleware"
	safetyhandler "yatra/internal/safety/handler"
	"yatra/internal/transport/http/shared"
)

const requestTimeout = 30 * time.Second

// Deps collects everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	OperatorAuth middleware.OperatorValidator

	Identity   *ledgerhandler.Handler
	Safety     *safetyhandler.Handler
	Fences     *geofencehandler.Handler
	Alerts     *alerthandler.Handler
	Broadcasts *notifyhandler.Handler
	Audit      *audithandler.Handler

	// HealthChecks run on /healthz; a failing check flips the response to 503.
	HealthChecks map[string]func(context.Context) error
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	// Tourist-facing routes: registration, location and distress reporting,
	// fence reads for the mobile map. Mobile clients hold only their token.
	r.Group(func(r chi.Router) {
		deps.Identity.Register(r)
		deps.Safety.Register(r)
		deps.Fences.Register(r)
	})

	// Operator routes: dashboard reads, alert transitions, zone management,
	// broadcasts, audit trail.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator(deps.OperatorAuth, deps.Logger))
		deps.Identity.RegisterOperator(r)
		deps.Safety.RegisterOperator(r)
		deps.Fences.RegisterOperator(r)
		deps.Alerts.Register(r)
		deps.Broadcasts.RegisterOperator(r)
		deps.Audit.RegisterOperator(r)
	})

	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		result["status"] = "ok"
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "degraded"
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		shared.WriteJSON(w, status, result)
	}
}
