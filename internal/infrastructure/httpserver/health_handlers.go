package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck probes every registered dependency. Any failing probe
// degrades the overall status and flips the response to 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Service:      "git-shame",
		Dependencies: make(map[string]string),
	}
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			resp.Dependencies[hc.Name()] = "unhealthy"
			resp.Status = "degraded"
		} else {
			resp.Dependencies[hc.Name()] = "healthy"
		}
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
