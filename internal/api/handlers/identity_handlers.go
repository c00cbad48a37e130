package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cafe-connect/trust_ledger/internal/domain/services/identity"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/stats"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

type IdentityHandlers struct {
	identity  *identity.Service
	stats     *stats.Aggregator
	validator *validator.Validate
	logger    *logger.Logger
}

func NewIdentityHandlers(identitySvc *identity.Service, agg *stats.Aggregator, v *validator.Validate, log *logger.Logger) *IdentityHandlers {
	return &IdentityHandlers{identity: identitySvc, stats: agg, validator: v, logger: log}
}

type SetNicknameRequest struct {
	Nickname string `json:"nickname" validate:"required"`
}

// SetTrustScoreRequest binds the score wider than uint8 so out-of-range values reach the service
type SetTrustScoreRequest struct {
	TrustScore *int `json:"trust_score" validate:"required"`
}

// GetProfile handles GET /api/v1/identity/profile
func (h *IdentityHandlers) GetProfile(c *gin.Context) {
	profile, err := h.identity.GetOrCreateProfile(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SetNickname handles PUT /api/v1/identity/nickname
func (h *IdentityHandlers) SetNickname(c *gin.Context) {
	var req SetNicknameRequest
	if !bind(c, h.validator, &req) {
		return
	}
	profile, err := h.identity.SetNickname(c.Request.Context(), principal(c), req.Nickname)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SetTrustScore handles PUT /api/v1/identity/trust-score
func (h *IdentityHandlers) SetTrustScore(c *gin.Context) {
	var req SetTrustScoreRequest
	if !bind(c, h.validator, &req) {
		return
	}
	score := *req.TrustScore
	if score < 0 {
		respondBadRequest(c, "trust_score must not be negative", map[string]string{"trust_score": strconv.Itoa(score)})
		return
	}
	if score > math.MaxUint8 {
		score = math.MaxUint8
	}
	profile, err := h.identity.SetTrustScore(c.Request.Context(), principal(c), uint8(score))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// VerifyIdentity handles GET /api/v1/identity/verify
func (h *IdentityHandlers) VerifyIdentity(c *gin.Context) {
	report, err := h.identity.VerifyIdentity(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// PlatformStats handles GET /api/v1/stats. It merges the identity counters with the
// wallet aggregator snapshot.
func (h *IdentityHandlers) PlatformStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"identity": h.identity.PlatformStats(c.Request.Context()),
		"wallets":  h.stats.Snapshot(),
	})
}
