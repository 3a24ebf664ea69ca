package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthMessage is the body returned by the health check.
const HealthMessage = "Autonomi service is running"

// Health is a health-check endpoint used by load balancers and monitoring
// systems to verify that the service is up.  It returns a fixed plain text
// message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, HealthMessage)
}
