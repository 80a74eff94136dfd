// Package handler contains the HTTP handlers: the request dispatcher, the
// upstream relay, the static responder and the admin endpoints.
package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devfront/internal/config"
	"devfront/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Admin routes
// are registered as static paths so they take precedence over the catch-all.
func RegisterRoutes(e *echo.Echo, d *Dispatcher, health *HealthHandler) {
	e.GET(config.AdminPrefix+"/healthz", health.Healthz)
	e.GET(config.AdminPrefix+"/status", health.Status)

	e.Any("/*", d.Dispatch)
}

// RegisterMetrics exposes the Prometheus registry when metrics are enabled.
// m is nil when metrics are disabled.
func RegisterMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if m == nil {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}
