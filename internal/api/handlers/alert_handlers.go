package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cafe-connect/trust_ledger/internal/domain/services/alerts"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/scamradar"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

// AlertHandlers serves the alert ledger and the scam radar, which feeds it
type AlertHandlers struct {
	alerts    *alerts.Service
	radar     *scamradar.Service
	validator *validator.Validate
	logger    *logger.Logger
}

func NewAlertHandlers(alertSvc *alerts.Service, radar *scamradar.Service, v *validator.Validate, log *logger.Logger) *AlertHandlers {
	return &AlertHandlers{alerts: alertSvc, radar: radar, validator: v, logger: log}
}

type AnalyzeMessageRequest struct {
	Message       string  `json:"message" validate:"required"`
	SenderContext *string `json:"sender_context" validate:"omitempty,max=256"`
}

// ListAlerts handles GET /api/v1/alerts?pending=true
func (h *AlertHandlers) ListAlerts(c *gin.Context) {
	list := h.alerts.List
	if c.Query("pending") == "true" {
		list = h.alerts.Unacknowledged
	}
	out, err := list(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

// Acknowledge handles POST /api/v1/alerts/:id/ack
func (h *AlertHandlers) Acknowledge(c *gin.Context) {
	if err := h.alerts.Acknowledge(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "acknowledged": true})
}

// AnalyzeMessage handles POST /api/v1/scam-radar/analyze
func (h *AlertHandlers) AnalyzeMessage(c *gin.Context) {
	var req AnalyzeMessageRequest
	if !bind(c, h.validator, &req) {
		return
	}
	result, err := h.radar.AnalyzeMessage(c.Request.Context(), principal(c), req.Message, req.SenderContext)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecentScans handles GET /api/v1/scam-radar/recent
func (h *AlertHandlers) RecentScans(c *gin.Context) {
	out, err := h.radar.Recent(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": out})
}
