package risk

import "github.com/cafe-connect/trust_ledger/internal/domain/entities"

// amountTier awards Points when the amount is strictly greater than Over
type amountTier struct {
	Over   uint64
	Points uint32
}

// Ordered highest first; the first matching tier wins.
var amountTiers = []amountTier{
	{Over: 10_000_000_000, Points: 30},
	{Over: 5_000_000_000, Points: 20},
	{Over: 1_000_000_000, Points: 10},
}

var emotionWeights = map[entities.EmotionalTag]uint32{
	entities.EmotionExcited:   20,
	entities.EmotionAngry:     20,
	entities.EmotionStressed:  20,
	entities.EmotionSad:       15,
	entities.EmotionHappy:     5,
	entities.EmotionNeutral:   0,
	entities.EmotionConfident: 0,
}

// Unlisted transaction types score zero
var transactionTypeWeights = map[string]uint32{
	"dating_app":    15,
	"gift":          15,
	"entertainment": 5,
	"scam_risk":     50,
}

const (
	highRiskPoints   = 50
	mediumRiskPoints = 25

	// LargeTransactionThreshold flags a spend as suspicious regardless of score
	LargeTransactionThreshold uint64 = 5_000_000_000
)

// messagePattern matches when any of AnyOf is present, and every one of AllOf is present
type messagePattern struct {
	Indicator entities.ScamIndicator
	Weight    uint32
	AnyOf     []string
	AllOf     []string
}

var messagePatterns = []messagePattern{
	{
		Indicator: entities.IndicatorFinancialRequest,
		Weight:    40,
		AnyOf:     []string{"send money", "wire transfer", "bitcoin", "cryptocurrency"},
	},
	{
		Indicator: entities.IndicatorUrgencyPressure,
		Weight:    25,
		AnyOf:     []string{"urgent", "emergency", "right now", "immediately"},
	},
	{
		Indicator: entities.IndicatorRomanceManipulation,
		Weight:    50,
		AllOf:     []string{"love you", "money"},
	},
	{
		Indicator: entities.IndicatorSobStory,
		Weight:    30,
		AnyOf:     []string{"family emergency", "hospital", "accident", "stuck"},
	},
}

const (
	uppercaseIndicatorWeight = 15
	longMessageLength        = 500
	longMessageBonus         = 10
	maxConfidence            = 100
)

type adviceBand struct {
	AtLeast uint8
	Text    string
}

var adviceBands = []adviceBand{
	{AtLeast: 90, Text: "HIGH SCAM RISK: Do not send money or personal info. Block and report this user."},
	{AtLeast: 75, Text: "POTENTIAL SCAM: Be very cautious. Never send money to someone you haven't met."},
	{AtLeast: 50, Text: "SUSPICIOUS ACTIVITY: Take your time. Verify their identity before sharing personal details."},
	{AtLeast: 0, Text: "Message appears safe, but always trust your instincts."},
}
