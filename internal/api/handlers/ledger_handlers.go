package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/ledger"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

// LedgerHandlers exposes deposits, transfers, spending and linked accounts
type LedgerHandlers struct {
	ledger    *ledger.Service
	validator *validator.Validate
	logger    *logger.Logger
}

func NewLedgerHandlers(ledgerSvc *ledger.Service, v *validator.Validate, log *logger.Logger) *LedgerHandlers {
	return &LedgerHandlers{ledger: ledgerSvc, validator: v, logger: log}
}

// DepositRequest carries the amount in external currency units, e.g. "12.50"
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method" validate:"required,payment_method"`
	ExternalRef string          `json:"external_ref" validate:"required,max=255"`
}

type SendMoneyRequest struct {
	To     string  `json:"to" validate:"required"`
	Amount uint64  `json:"amount" validate:"required"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

type RecordSpendingRequest struct {
	Amount          uint64  `json:"amount"`
	EmotionalTag    string  `json:"emotional_tag" validate:"required,emotion"`
	TransactionType string  `json:"transaction_type" validate:"required,max=64"`
	Notes           *string `json:"notes" validate:"omitempty,max=500"`
}

type LinkAccountRequest struct {
	AccountType string `json:"account_type" validate:"required,payment_method"`
	Identifier  string `json:"identifier" validate:"required,max=128"`
	Nickname    string `json:"nickname" validate:"max=32"`
}

// Deposit handles POST /api/v1/ledger/deposits. Replaying a reference returns the
// original request. A failed submission answers with the failed request attached.
func (h *LedgerHandlers) Deposit(c *gin.Context) {
	var req DepositRequest
	if !bind(c, h.validator, &req) {
		return
	}
	dep, err := h.ledger.Deposit(c.Request.Context(), principal(c), req.Amount, entities.PaymentMethod(req.Method), req.ExternalRef)
	if err != nil {
		if dep != nil {
			respondFailure(c, h.logger, err, dep)
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dep)
}

// GetDeposits handles GET /api/v1/ledger/deposits
func (h *LedgerHandlers) GetDeposits(c *gin.Context) {
	deps, err := h.ledger.GetDeposits(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposits": deps})
}

// GetDeposit handles GET /api/v1/ledger/deposits/:id
func (h *LedgerHandlers) GetDeposit(c *gin.Context) {
	dep, err := h.ledger.GetDeposit(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dep)
}

// SendMoney handles POST /api/v1/ledger/transfers
func (h *LedgerHandlers) SendMoney(c *gin.Context) {
	var req SendMoneyRequest
	if !bind(c, h.validator, &req) {
		return
	}
	tx, err := h.ledger.SendMoney(c.Request.Context(), principal(c), req.To, req.Amount, req.Notes)
	if err != nil {
		if tx != nil {
			respondFailure(c, h.logger, err, tx)
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GetTransactions handles GET /api/v1/ledger/transactions
func (h *LedgerHandlers) GetTransactions(c *gin.Context) {
	txs, err := h.ledger.GetTransactionHistory(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// GetTransaction handles GET /api/v1/ledger/transactions/:id
func (h *LedgerHandlers) GetTransaction(c *gin.Context) {
	tx, err := h.ledger.GetTransaction(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// RecordSpending handles POST /api/v1/ledger/spending
func (h *LedgerHandlers) RecordSpending(c *gin.Context) {
	var req RecordSpendingRequest
	if !bind(c, h.validator, &req) {
		return
	}
	rec, err := h.ledger.RecordSpending(c.Request.Context(), principal(c), req.Amount,
		entities.EmotionalTag(req.EmotionalTag), req.TransactionType, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetSpendingHistory handles GET /api/v1/ledger/spending?limit=N
func (h *LedgerHandlers) GetSpendingHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondBadRequest(c, "limit must be a non-negative integer", map[string]string{"limit": raw})
			return
		}
		limit = n
	}
	records, err := h.ledger.GetSpendingHistory(c.Request.Context(), principal(c), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetSpendingAnalysis handles GET /api/v1/ledger/spending/analysis
func (h *LedgerHandlers) GetSpendingAnalysis(c *gin.Context) {
	analysis, err := h.ledger.GetSpendingAnalysis(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// LinkAccount handles POST /api/v1/ledger/accounts
func (h *LedgerHandlers) LinkAccount(c *gin.Context) {
	var req LinkAccountRequest
	if !bind(c, h.validator, &req) {
		return
	}
	acct, err := h.ledger.LinkPaymentAccount(c.Request.Context(), principal(c),
		entities.PaymentMethod(req.AccountType), req.Identifier, req.Nickname)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

// GetLinkedAccounts handles GET /api/v1/ledger/accounts
func (h *LedgerHandlers) GetLinkedAccounts(c *gin.Context) {
	accts, err := h.ledger.GetLinkedAccounts(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accts})
}

// GetBalance handles GET /api/v1/ledger/balance
func (h *LedgerHandlers) GetBalance(c *gin.Context) {
	bal, err := h.ledger.GetBalance(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}
