// Package routes assembles the HTTP surface under /api/v1. Handlers resolve
// their dependencies from the request context via the injection container.
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/juniper/pkg/middleware"
	"github.com/Ramsey-B/juniper/pkg/routes/candidate"
	"github.com/Ramsey-B/juniper/pkg/routes/duplicates"
	"github.com/Ramsey-B/juniper/pkg/routes/location"
)

// RegisterAll wires tracing, logging, error handling and the API routes onto
// e. Health endpoints are registered separately by the health checker, which
// holds the connection handles.
func RegisterAll(e *echo.Echo, serviceName string, logger ectologger.Logger) {
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	duplicates.Register(api.Group("/duplicates"))
	candidate.Register(api.Group("/candidates"))
	location.Register(api.Group("/locations"))
}
