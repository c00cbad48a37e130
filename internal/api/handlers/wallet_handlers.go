package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/wallet"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

// WalletHandlers contains the wallet-related HTTP handlers
type WalletHandlers struct {
	wallets   *wallet.Service
	validator *validator.Validate
	logger    *logger.Logger
}

func NewWalletHandlers(wallets *wallet.Service, v *validator.Validate, log *logger.Logger) *WalletHandlers {
	return &WalletHandlers{wallets: wallets, validator: v, logger: log}
}

type CreateWalletRequest struct {
	Nickname *string `json:"nickname"`
}

// UpdatePolicyRequest is partial; omitted fields are left unchanged.
// CoolingOffPeriod is in seconds.
type UpdatePolicyRequest struct {
	DailyLimit       *uint64 `json:"daily_limit"`
	WarningThreshold *uint64 `json:"warning_threshold"`
	CoolingOffPeriod *uint64 `json:"cooling_off_period"`
	Nickname         *string `json:"nickname"`
}

type EmergencyContactRequest struct {
	Contact string `json:"contact" validate:"required,principal"`
}

// CreateWallet handles POST /api/v1/wallet. The body is optional.
func (h *WalletHandlers) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if c.Request.ContentLength != 0 {
		if !bind(c, h.validator, &req) {
			return
		}
	}
	w, err := h.wallets.CreateWallet(c.Request.Context(), principal(c), req.Nickname)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// GetWallet handles GET /api/v1/wallet
func (h *WalletHandlers) GetWallet(c *gin.Context) {
	w, err := h.wallets.GetWallet(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// UpdatePolicy handles PUT /api/v1/wallet/policy
func (h *WalletHandlers) UpdatePolicy(c *gin.Context) {
	var req UpdatePolicyRequest
	if !bind(c, h.validator, &req) {
		return
	}
	upd := entities.PolicyUpdate{
		DailyLimit:       req.DailyLimit,
		WarningThreshold: req.WarningThreshold,
		Nickname:         req.Nickname,
	}
	if req.CoolingOffPeriod != nil {
		// clamp before multiplying so a huge value cannot wrap into range
		secs := *req.CoolingOffPeriod
		if limit := uint64(wallet.MaxCoolingOffPeriod / time.Second); secs > limit {
			secs = limit + 1
		}
		d := time.Duration(secs) * time.Second
		upd.CoolingOffPeriod = &d
	}
	w, err := h.wallets.UpdatePolicy(c.Request.Context(), principal(c), upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// UpdatePrivacy handles PUT /api/v1/wallet/privacy
func (h *WalletHandlers) UpdatePrivacy(c *gin.Context) {
	var req entities.PrivacySettings
	if !bind(c, h.validator, &req) {
		return
	}
	w, err := h.wallets.UpdatePrivacySettings(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// AddEmergencyContact handles POST /api/v1/wallet/emergency-contacts
func (h *WalletHandlers) AddEmergencyContact(c *gin.Context) {
	var req EmergencyContactRequest
	if !bind(c, h.validator, &req) {
		return
	}
	w, err := h.wallets.AddEmergencyContact(c.Request.Context(), principal(c), entities.Principal(req.Contact))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
