package entities

import "time"

// Profile is the identity record created lazily on first access
type Profile struct {
	Principal         Principal `json:"principal"`
	Nickname          *string   `json:"nickname,omitempty"`
	TrustScore        uint8     `json:"trust_score"`
	VerificationLevel string    `json:"verification_level"`
	CreatedAt         time.Time `json:"created_at"`
	LastSeen          time.Time `json:"last_seen"`
}

// IdentityReport summarizes how much an identity can be relied upon
type IdentityReport struct {
	Principal         Principal `json:"principal"`
	TrustScore        uint8     `json:"trust_score"`
	VerificationLevel string    `json:"verification_level"`
	IdentityAge       string    `json:"identity_age"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Recommendations   []string  `json:"recommendations"`
}
