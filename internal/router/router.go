// Package router defines how HTTP routes are registered for the process.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/souschef/sous-chef/internal/handler"
)

// RegisterRoutes registers the operational routes on the provided
// Echo instance. The persistence layer itself has no domain HTTP
// surface; only the health check is exposed, so load balancers and
// monitoring can verify that the server (and with it the session
// event consumer) is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}
