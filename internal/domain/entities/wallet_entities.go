package entities

import (
	"encoding/json"
	"time"
)

// SpendingPolicy bounds how fast a wallet may spend
type SpendingPolicy struct {
	DailyLimit           uint64                  `json:"daily_limit"`
	WarningThreshold     uint64                  `json:"warning_threshold"`
	CoolingOffPeriod     time.Duration           `json:"cooling_off_period"` // seconds on the wire
	LastLargePurchase    *time.Time              `json:"last_large_purchase,omitempty"`
	EmotionalStateTotals map[EmotionalTag]uint64 `json:"emotional_state_totals"`
}

// spendingPolicyJSON carries the cooling-off period in whole seconds, the unit
// the policy update endpoint accepts
type spendingPolicyJSON struct {
	DailyLimit           uint64                  `json:"daily_limit"`
	WarningThreshold     uint64                  `json:"warning_threshold"`
	CoolingOffPeriod     int64                   `json:"cooling_off_period"`
	LastLargePurchase    *time.Time              `json:"last_large_purchase,omitempty"`
	EmotionalStateTotals map[EmotionalTag]uint64 `json:"emotional_state_totals"`
}

func (p SpendingPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(spendingPolicyJSON{
		DailyLimit:           p.DailyLimit,
		WarningThreshold:     p.WarningThreshold,
		CoolingOffPeriod:     int64(p.CoolingOffPeriod / time.Second),
		LastLargePurchase:    p.LastLargePurchase,
		EmotionalStateTotals: p.EmotionalStateTotals,
	})
}

func (p *SpendingPolicy) UnmarshalJSON(data []byte) error {
	var raw spendingPolicyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = SpendingPolicy{
		DailyLimit:           raw.DailyLimit,
		WarningThreshold:     raw.WarningThreshold,
		CoolingOffPeriod:     time.Duration(raw.CoolingOffPeriod) * time.Second,
		LastLargePurchase:    raw.LastLargePurchase,
		EmotionalStateTotals: raw.EmotionalStateTotals,
	}
	return nil
}

// PrivacySettings control what the wallet owner shares
type PrivacySettings struct {
	ShareTrustScore       bool `json:"share_trust_score"`
	AllowTrustConnections bool `json:"allow_trust_connections"`
	PublicNickname        bool `json:"public_nickname"`
	EmergencyMode         bool `json:"emergency_mode"`
}

// DefaultPrivacySettings are applied at wallet creation
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{AllowTrustConnections: true}
}

// Wallet holds a principal's balance. Balance is what can still be held or spent;
// Held is the sum of open reservations awaiting settlement.
type Wallet struct {
	Principal         Principal       `json:"principal"`
	Nickname          *string         `json:"nickname,omitempty"`
	Balance           uint64          `json:"balance"`
	Held              uint64          `json:"held"`
	TrustScore        uint8           `json:"trust_score"`
	SafetyRating      SafetyRating    `json:"safety_rating"`
	TotalSpent        uint64          `json:"total_spent"`
	SpendingPolicy    SpendingPolicy  `json:"spending_policy"`
	EmergencyContacts []Principal     `json:"emergency_contacts"`
	PrivacySettings   PrivacySettings `json:"privacy_settings"`
	CreatedAt         time.Time       `json:"created_at"`
	LastActivity      time.Time       `json:"last_activity"`
}

// Clone returns a deep copy safe to hand outside the store
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := *w
	if w.Nickname != nil {
		n := *w.Nickname
		c.Nickname = &n
	}
	if w.SpendingPolicy.LastLargePurchase != nil {
		t := *w.SpendingPolicy.LastLargePurchase
		c.SpendingPolicy.LastLargePurchase = &t
	}
	c.SpendingPolicy.EmotionalStateTotals = make(map[EmotionalTag]uint64, len(w.SpendingPolicy.EmotionalStateTotals))
	for k, v := range w.SpendingPolicy.EmotionalStateTotals {
		c.SpendingPolicy.EmotionalStateTotals[k] = v
	}
	c.EmergencyContacts = append([]Principal(nil), w.EmergencyContacts...)
	return &c
}

// HasEmergencyContact reports whether p is already listed
func (w *Wallet) HasEmergencyContact(p Principal) bool {
	for _, c := range w.EmergencyContacts {
		if c == p {
			return true
		}
	}
	return false
}

// PolicyUpdate is a partial spending policy change; nil fields are left as they are
type PolicyUpdate struct {
	DailyLimit       *uint64
	WarningThreshold *uint64
	CoolingOffPeriod *time.Duration
	Nickname         *string
}

// Reservation is a hold on funds taken before an external call
type Reservation struct {
	TransactionID string    `json:"transaction_id"`
	Principal     Principal `json:"principal"`
	Amount        uint64    `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// Balance is the caller-facing view of a wallet's funds
type Balance struct {
	Available uint64 `json:"available"`
	Held      uint64 `json:"held"`
	Total     uint64 `json:"total"`
}
