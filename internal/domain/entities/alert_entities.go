package entities

import "time"

// SafetyAlert is append-only; only Acknowledged ever changes, and only false to true
type SafetyAlert struct {
	ID           string            `json:"id"`
	Owner        Principal         `json:"owner"`
	Type         AlertType         `json:"alert_type"`
	Message      string            `json:"message"`
	Severity     Severity          `json:"severity"`
	CreatedAt    time.Time         `json:"created_at"`
	Acknowledged bool              `json:"acknowledged"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Reporter     *Principal        `json:"reporter,omitempty"`
	ChatContext  *string           `json:"chat_context,omitempty"`
}

// ScamRadarAlert is one message-level scam evaluation
type ScamRadarAlert struct {
	ID                string          `json:"id"`
	TargetMessage     string          `json:"target_message"`
	Indicators        []ScamIndicator `json:"scam_indicators"`
	Confidence        uint8           `json:"confidence_score"`
	SuggestedResponse string          `json:"suggested_response"`
	CreatedAt         time.Time       `json:"created_at"`
}

// WalletStats are process-wide counters; all but LastUpdated only grow
type WalletStats struct {
	TotalWallets          uint64    `json:"total_wallets"`
	TotalTransactions     uint64    `json:"total_transactions"`
	ScamsPrevented        uint64    `json:"scams_prevented"`
	TotalTrustConnections uint64    `json:"total_trust_connections"`
	TotalAlerts           uint64    `json:"total_alerts"`
	LastUpdated           time.Time `json:"last_updated"`
}

// Counters flattens the numeric fields for gauge publishing
func (s WalletStats) Counters() map[string]uint64 {
	return map[string]uint64{
		"total_wallets":           s.TotalWallets,
		"total_transactions":      s.TotalTransactions,
		"scams_prevented":         s.ScamsPrevented,
		"total_trust_connections": s.TotalTrustConnections,
		"total_alerts":            s.TotalAlerts,
	}
}
