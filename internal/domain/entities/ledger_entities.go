package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus tracks a payment through its lifecycle
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition enforces pending -> processing -> {completed, failed, cancelled}
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}

// PaymentTransaction is a wallet-to-wallet or wallet-to-external transfer
type PaymentTransaction struct {
	ID              string            `json:"id"`
	From            Principal         `json:"from"`
	To              string            `json:"to"`
	Amount          uint64            `json:"amount"`
	Method          PaymentMethod     `json:"method"`
	TransactionType string            `json:"transaction_type"`
	Status          TransactionStatus `json:"status"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	SafetyApproved  bool              `json:"safety_approved"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	SettlementRef   string            `json:"settlement_ref,omitempty"`
	FailureReason   string            `json:"failure_reason,omitempty"`
}

// DepositRequest records an inbound transfer from an external network
type DepositRequest struct {
	ID                string            `json:"id"`
	Principal         Principal         `json:"principal"`
	Amount            decimal.Decimal   `json:"amount"`
	CreditedUnits     uint64            `json:"credited_units"`
	Method            PaymentMethod     `json:"method"`
	ExternalPaymentID string            `json:"external_payment_id"`
	Status            TransactionStatus `json:"status"`
	VerificationCode  string            `json:"verification_code"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	FailureReason     string            `json:"failure_reason,omitempty"`
}

// LinkedAccount is an external payment account attached to a wallet
type LinkedAccount struct {
	ID          string        `json:"id"`
	AccountType PaymentMethod `json:"account_type"`
	Identifier  string        `json:"identifier"`
	Nickname    string        `json:"nickname"`
	IsVerified  bool          `json:"is_verified"`
	AddedAt     time.Time     `json:"added_at"`
	LastUsed    *time.Time    `json:"last_used,omitempty"`
}

// SpendingRecord is immutable once appended
type SpendingRecord struct {
	ID                string       `json:"id"`
	Amount            uint64       `json:"amount"`
	EmotionalTag      EmotionalTag `json:"emotional_tag"`
	TransactionType   string       `json:"transaction_type"`
	RiskAssessment    RiskLevel    `json:"risk_assessment"`
	Timestamp         time.Time    `json:"timestamp"`
	Notes             *string      `json:"notes,omitempty"`
	FlaggedSuspicious bool         `json:"flagged_suspicious"`
}

// SpendingAnalysis is a read-only summary of a wallet's spending behaviour
type SpendingAnalysis struct {
	TotalSpent           uint64       `json:"total_spent"`
	TotalTransactions    uint64       `json:"total_transactions"`
	HighRiskTransactions uint64       `json:"high_risk_transactions"`
	RiskPercentage       uint32       `json:"risk_percentage"`
	MostEmotionalTag     EmotionalTag `json:"most_emotional_tag"`
	SafetyRating         SafetyRating `json:"safety_rating"`
	TrustScore           uint8        `json:"trust_score"`
	Recommendations      []string     `json:"recommendations"`
}

// DepositSubmission is what the ledger asks a payment network to collect
type DepositSubmission struct {
	DepositID   string          `json:"deposit_id"`
	Principal   Principal       `json:"principal"`
	Method      PaymentMethod   `json:"method"`
	ExternalRef string          `json:"external_ref"`
	Amount      decimal.Decimal `json:"amount"`
}

// SettlementRequest asks the settlement network to move funds between wallets
type SettlementRequest struct {
	TransactionID string    `json:"transaction_id"`
	From          Principal `json:"from"`
	To            Principal `json:"to"`
	Amount        uint64    `json:"amount"`
}

// PaymentReceipt is returned by a payment or settlement network on success.
// Rate is ledger units per external unit; zero means the network did not quote one.
type PaymentReceipt struct {
	ExternalID string          `json:"external_id"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	SettledAt  time.Time       `json:"settled_at"`
}
