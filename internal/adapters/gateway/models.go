package gateway

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type depositRequest struct {
	DepositID   string          `json:"deposit_id"`
	Principal   string          `json:"principal"`
	Method      string          `json:"method"`
	ExternalRef string          `json:"external_ref"`
	Amount      decimal.Decimal `json:"amount"`
}

type depositResponse struct {
	PaymentID string          `json:"payment_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	SettledAt time.Time       `json:"settled_at"`
}

type settlementRequest struct {
	TransactionID string `json:"transaction_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        uint64 `json:"amount"`
}

type settlementResponse struct {
	SettlementID string    `json:"settlement_id"`
	Status       string    `json:"status"`
	SettledAt    time.Time `json:"settled_at"`
}

// APIError is the gateway's error body
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d %s: %s", e.StatusCode, e.Code, e.Message)
}
