package entities

import "time"

// TrustConnection is a directed edge in the trust graph
type TrustConnection struct {
	From               Principal      `json:"from"`
	To                 Principal      `json:"to"`
	ConnectionType     ConnectionType `json:"connection_type"`
	TrustLevel         uint8          `json:"trust_level"`
	EstablishedAt      time.Time      `json:"established_at"`
	LastInteraction    time.Time      `json:"last_interaction"`
	MutualVerification bool           `json:"mutual_verification"`
	EmergencyContact   bool           `json:"emergency_contact"`
}

// DefaultInnerCircleTrust is assigned to every new inner-circle member
const DefaultInnerCircleTrust uint8 = 85

// InnerCircleMember is someone an owner has granted permissions to
type InnerCircleMember struct {
	Owner        Principal    `json:"owner"`
	Member       Principal    `json:"member"`
	Relationship Relationship `json:"relationship"`
	Permissions  []Permission `json:"permissions"`
	AddedAt      time.Time    `json:"added_at"`
	TrustLevel   uint8        `json:"trust_level"`
}

// Has reports whether the member was granted perm
func (m InnerCircleMember) Has(perm Permission) bool {
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// CommunityThreat aggregates reports against one target for one threat type
type CommunityThreat struct {
	ThreatID        string      `json:"threat_id"`
	Target          Principal   `json:"target"`
	ThreatType      string      `json:"threat_type"`
	Reporters       []Principal `json:"reporters"`
	FirstReportedAt time.Time   `json:"first_reported_at"`
	LastReportedAt  time.Time   `json:"last_reported_at"`
}
