package entities

// EmotionalTag is the caller's self-reported state at spend time
type EmotionalTag string

const (
	EmotionHappy     EmotionalTag = "happy"
	EmotionSad       EmotionalTag = "sad"
	EmotionExcited   EmotionalTag = "excited"
	EmotionAngry     EmotionalTag = "angry"
	EmotionNeutral   EmotionalTag = "neutral"
	EmotionStressed  EmotionalTag = "stressed"
	EmotionConfident EmotionalTag = "confident"
)

func (e EmotionalTag) IsValid() bool {
	switch e {
	case EmotionHappy, EmotionSad, EmotionExcited, EmotionAngry, EmotionNeutral, EmotionStressed, EmotionConfident:
		return true
	}
	return false
}

// RiskLevel is the outcome of transaction scoring
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SafetyRating summarizes a wallet's recent risk profile
type SafetyRating string

const (
	SafetySafe     SafetyRating = "SAFE"
	SafetyCaution  SafetyRating = "CAUTION"
	SafetyHighRisk SafetyRating = "HIGH_RISK"
)

// PaymentMethod names an external payment network
type PaymentMethod string

const (
	MethodVenmo    PaymentMethod = "venmo"
	MethodApplePay PaymentMethod = "apple_pay"
	MethodCashApp  PaymentMethod = "cashapp"
	MethodZelle    PaymentMethod = "zelle"

	// MethodInternal marks wallet-to-wallet transfers
	MethodInternal PaymentMethod = "internal"
)

// IsValid reports whether m is an external method accepted for deposits and linked accounts
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodVenmo, MethodApplePay, MethodCashApp, MethodZelle:
		return true
	}
	return false
}

// ConnectionType labels a trust edge
type ConnectionType string

const (
	ConnectionFriend           ConnectionType = "friend"
	ConnectionFamily           ConnectionType = "family"
	ConnectionRomanticInterest ConnectionType = "romantic_interest"
	ConnectionVerifiedBusiness ConnectionType = "verified_business"
)

func (c ConnectionType) IsValid() bool {
	switch c {
	case ConnectionFriend, ConnectionFamily, ConnectionRomanticInterest, ConnectionVerifiedBusiness:
		return true
	}
	return false
}

// Relationship labels an inner-circle membership
type Relationship string

const (
	RelationshipFamily           Relationship = "family"
	RelationshipFriend           Relationship = "friend"
	RelationshipDatingBuddy      Relationship = "dating_buddy"
	RelationshipEmergencyContact Relationship = "emergency_contact"
)

func (r Relationship) IsValid() bool {
	switch r {
	case RelationshipFamily, RelationshipFriend, RelationshipDatingBuddy, RelationshipEmergencyContact:
		return true
	}
	return false
}

// Permission is something an owner grants an inner-circle member
type Permission string

const (
	PermissionViewMatches      Permission = "view_matches"
	PermissionFlagUsers        Permission = "flag_users"
	PermissionEmergencyContact Permission = "emergency_contact"
	PermissionSpendingAlerts   Permission = "spending_alerts"
)

func (p Permission) IsValid() bool {
	switch p {
	case PermissionViewMatches, PermissionFlagUsers, PermissionEmergencyContact, PermissionSpendingAlerts:
		return true
	}
	return false
}

// Severity of a safety alert
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertType classifies a safety alert
type AlertType string

const (
	AlertChatScam        AlertType = "CHAT_SCAM"
	AlertInnerCircleFlag AlertType = "INNER_CIRCLE_FLAG"
	AlertSpendingRisk    AlertType = "SPENDING_RISK"
	AlertSpendingLimit   AlertType = "SPENDING_LIMIT"
	AlertSpendingCircle  AlertType = "SPENDING_ALERT"
	AlertTransferRisk    AlertType = "TRANSFER_RISK"
)

// ScamIndicator names a matched message pattern
type ScamIndicator string

const (
	IndicatorFinancialRequest    ScamIndicator = "FINANCIAL_REQUEST"
	IndicatorUrgencyPressure     ScamIndicator = "URGENCY_PRESSURE"
	IndicatorRomanceManipulation ScamIndicator = "ROMANCE_MANIPULATION"
	IndicatorSobStory            ScamIndicator = "SOB_STORY"
	IndicatorSuspiciousGrammar   ScamIndicator = "SUSPICIOUS_GRAMMAR"
)
