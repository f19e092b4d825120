package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/bizmatters/deviation-service/internal/auth"
)

// RegisterRoutes mounts the API under api. Everything except login and
// refresh requires a valid token.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(h.jwtManager, h.logger))

	protected.POST("/incident/analyze", h.AnalyzeIncident)
	protected.POST("/incident/modify", h.ModifyIncident)
	protected.POST("/impact-assessment", h.AssessImpact)
	protected.POST("/investigation/modify", h.ModifyInvestigation)
	protected.POST("/transcribe", h.Transcribe)
	protected.POST("/initiation/check", h.CheckInitiation)
	protected.POST("/attachments/analyze", h.AnalyzeAttachments)
	protected.POST("/attachments/titles", h.RetitleAttachments)

	protected.GET("/workflows", h.ListWorkflows)
	protected.POST("/workflows/:workflow/:stage", h.RunTurn)

	protected.GET("/audit/:workflow", auth.RequireRole("admin", h.logger), h.RecentEvents)

	// Browsers cannot set headers on a websocket handshake, so the token may
	// also come from ?token=.
	api.GET("/ws/:workflow/per-minute", auth.OptionalAuth(h.jwtManager, h.logger), h.LivePerMinute)
}
