// Package risk scores transactions and chat messages. Every function here is pure:
// the same input always yields the same result and nothing is mutated.
package risk

import (
	"strings"
	"unicode"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
)

// Assessment breaks a transaction score down by factor
type Assessment struct {
	AmountPoints  uint32             `json:"amount_points"`
	EmotionPoints uint32             `json:"emotion_points"`
	TypePoints    uint32             `json:"type_points"`
	Total         uint32             `json:"total"`
	Level         entities.RiskLevel `json:"level"`
}

// Assess scores a transaction and keeps the per-factor points
func Assess(amount uint64, tag entities.EmotionalTag, txType string) Assessment {
	a := Assessment{
		AmountPoints:  amountPoints(amount),
		EmotionPoints: emotionWeights[tag],
		TypePoints:    transactionTypeWeights[txType],
	}
	a.Total = a.AmountPoints + a.EmotionPoints + a.TypePoints
	a.Level = levelFor(a.Total)
	return a
}

// ScoreTransaction returns the risk level for a transaction
func ScoreTransaction(amount uint64, tag entities.EmotionalTag, txType string) entities.RiskLevel {
	return Assess(amount, tag, txType).Level
}

// IsSuspicious reports whether a spend should be flagged
func IsSuspicious(level entities.RiskLevel, amount uint64) bool {
	return level == entities.RiskHigh || amount > LargeTransactionThreshold
}

func amountPoints(amount uint64) uint32 {
	for _, tier := range amountTiers {
		if amount > tier.Over {
			return tier.Points
		}
	}
	return 0
}

func levelFor(points uint32) entities.RiskLevel {
	switch {
	case points >= highRiskPoints:
		return entities.RiskHigh
	case points >= mediumRiskPoints:
		return entities.RiskMedium
	default:
		return entities.RiskLow
	}
}

// ScoreMessage returns the matched indicators and a confidence in [0,100]
func ScoreMessage(text string) ([]entities.ScamIndicator, uint8) {
	lower := strings.ToLower(text)
	indicators := make([]entities.ScamIndicator, 0, len(messagePatterns)+1)
	var confidence uint32

	for _, p := range messagePatterns {
		if p.matches(lower) {
			indicators = append(indicators, p.Indicator)
			confidence += p.Weight
		}
	}

	if shouting(text) {
		indicators = append(indicators, entities.IndicatorSuspiciousGrammar)
		confidence += uppercaseIndicatorWeight
	}

	if len(text) > longMessageLength {
		confidence += longMessageBonus
	}

	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return indicators, uint8(confidence)
}

func (p messagePattern) matches(lower string) bool {
	for _, kw := range p.AllOf {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(p.AnyOf) == 0 {
		return len(p.AllOf) > 0
	}
	for _, kw := range p.AnyOf {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// shouting is true when uppercase letters exceed a third of the UTF-8 byte length.
// Lengths are bytes here, as in the long-message bonus.
func shouting(text string) bool {
	total := len(text)
	if total == 0 {
		return false
	}
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper > total/3
}

// Advise maps a confidence to guidance for the recipient of a message
func Advise(confidence uint8) string {
	for _, band := range adviceBands {
		if confidence >= band.AtLeast {
			return band.Text
		}
	}
	return adviceBands[len(adviceBands)-1].Text
}
