package server

import (
	"github.com/gofiber/fiber/v2"
)

// --- Meta Handlers ---

// ServiceInfoResponse represents the service description returned at the root
type ServiceInfoResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Docs    string `json:"docs"`
}

// HealthResponse represents the health probe response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// handleServiceInfo returns service identity and entry points
// URL: GET /
// Public endpoint - no authentication required
// @Summary Get service information
// @Description Returns the service name, version and documentation entry points
// @Tags meta
// @Accept json
// @Produce json
// @Success 200 {object} ServiceInfoResponse "Service information"
// @Router / [get]
func (s *Server) handleServiceInfo(c *fiber.Ctx) error {
	info := ServiceInfoResponse{
		Message: "Alerting & Notification Platform API",
		Version: s.version,
		Status:  "active",
		Docs:    "/swagger/",
	}
	return SendSuccess(c, fiber.StatusOK, info)
}

// handleHealth returns a liveness probe answer
// URL: GET /health
// Public endpoint - no authentication required
// @Summary Health check
// @Description Returns service health for load balancer and uptime probes
// @Tags meta
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse "Service health"
// @Router /health [get]
func (s *Server) handleHealth(c *fiber.Ctx) error {
	health := HealthResponse{
		Status:  "healthy",
		Service: "noticeboard",
		Version: s.version,
	}
	return SendSuccess(c, fiber.StatusOK, health)
}
