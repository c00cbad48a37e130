package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/trust"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

type TrustHandlers struct {
	trust     *trust.Service
	validator *validator.Validate
	logger    *logger.Logger
}

func NewTrustHandlers(trustSvc *trust.Service, v *validator.Validate, log *logger.Logger) *TrustHandlers {
	return &TrustHandlers{trust: trustSvc, validator: v, logger: log}
}

type AddConnectionRequest struct {
	To             string `json:"to" validate:"required,principal"`
	ConnectionType string `json:"connection_type" validate:"required,connection_type"`
	TrustLevel     uint8  `json:"trust_level" validate:"lte=100"`
}

type AddInnerCircleRequest struct {
	Member       string   `json:"member" validate:"required,principal"`
	Relationship string   `json:"relationship" validate:"required,relationship"`
	Permissions  []string `json:"permissions" validate:"dive,permission"`
}

type FlagThreatRequest struct {
	Target     string `json:"target" validate:"required,principal"`
	ThreatType string `json:"threat_type" validate:"required,max=64"`
	Evidence   string `json:"evidence" validate:"max=2000"`
	Severity   uint8  `json:"severity" validate:"lte=100"`
}

// AddConnection handles POST /api/v1/trust/connections
func (h *TrustHandlers) AddConnection(c *gin.Context) {
	var req AddConnectionRequest
	if !bind(c, h.validator, &req) {
		return
	}
	conn, err := h.trust.AddTrustConnection(c.Request.Context(), principal(c),
		entities.Principal(req.To), entities.ConnectionType(req.ConnectionType), req.TrustLevel)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// GetConnections handles GET /api/v1/trust/connections
func (h *TrustHandlers) GetConnections(c *gin.Context) {
	conns, err := h.trust.GetTrustConnections(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": conns})
}

// AddInnerCircleMember handles POST /api/v1/trust/inner-circle
func (h *TrustHandlers) AddInnerCircleMember(c *gin.Context) {
	var req AddInnerCircleRequest
	if !bind(c, h.validator, &req) {
		return
	}
	perms := make([]entities.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, entities.Permission(p))
	}
	member, err := h.trust.AddInnerCircleMember(c.Request.Context(), principal(c),
		entities.Principal(req.Member), entities.Relationship(req.Relationship), perms)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// GetInnerCircle handles GET /api/v1/trust/inner-circle
func (h *TrustHandlers) GetInnerCircle(c *gin.Context) {
	members, err := h.trust.GetInnerCircle(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// FlagThreat handles POST /api/v1/trust/threats
func (h *TrustHandlers) FlagThreat(c *gin.Context) {
	var req FlagThreatRequest
	if !bind(c, h.validator, &req) {
		return
	}
	threat, err := h.trust.FlagUserThreat(c.Request.Context(), principal(c),
		entities.Principal(req.Target), req.ThreatType, req.Evidence, req.Severity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, threat)
}

// GetThreat handles GET /api/v1/trust/threats/:id
func (h *TrustHandlers) GetThreat(c *gin.Context) {
	threat, err := h.trust.GetCommunityThreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, threat)
}
