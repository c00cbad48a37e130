package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/risk"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

const (
	highRiskRatioPercent = 30
	cautionRatioPercent  = 10
	lowTrustScore        = 60
	maxTransactionType   = 64
)

// RecordSpending appends an immutable spending record with its risk assessment.
// Flagged records alert the spender and every inner-circle owner who granted the
// spender spending_alerts.
func (s *Service) RecordSpending(ctx context.Context, principal entities.Principal, amount uint64, tag entities.EmotionalTag, txType string, notes *string) (*entities.SpendingRecord, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if !tag.IsValid() {
		return nil, apperrors.NewValidationErrorf("unknown emotional tag %q", tag)
	}
	txType = strings.TrimSpace(txType)
	if len(txType) > maxTransactionType {
		return nil, apperrors.NewValidationErrorf("transaction type must be at most %d characters", maxTransactionType)
	}

	assessment := risk.Assess(amount, tag, txType)
	flagged := risk.IsSuspicious(assessment.Level, amount)
	metrics.RecordRiskAssessment(string(assessment.Level))

	s.mu.Lock()
	now := s.clock.Now()
	rec := &entities.SpendingRecord{
		ID:                "spend_" + uuid.NewString(),
		Amount:            amount,
		EmotionalTag:      tag,
		TransactionType:   txType,
		RiskAssessment:    assessment.Level,
		Timestamp:         now,
		Notes:             notes,
		FlaggedSuspicious: flagged,
	}
	before := s.windowTotalLocked(principal, now)
	s.spending[principal] = append(s.spending[principal], rec)
	after := saturatingAdd(before, amount)
	rating := safetyRating(s.spending[principal])

	var policy entities.SpendingPolicy
	hasWallet := s.wallets.Mutate(principal, func(w *entities.Wallet) {
		w.TotalSpent = saturatingAdd(w.TotalSpent, amount)
		if w.SpendingPolicy.EmotionalStateTotals == nil {
			w.SpendingPolicy.EmotionalStateTotals = make(map[entities.EmotionalTag]uint64)
		}
		w.SpendingPolicy.EmotionalStateTotals[tag] = saturatingAdd(w.SpendingPolicy.EmotionalStateTotals[tag], amount)
		if amount >= w.SpendingPolicy.WarningThreshold {
			t := now
			w.SpendingPolicy.LastLargePurchase = &t
		}
		w.SafetyRating = rating
		w.LastActivity = now
		policy = w.SpendingPolicy
	})
	out := *rec
	s.mu.Unlock()

	if s.stats != nil {
		s.stats.RecordTransaction(assessment.Level == entities.RiskHigh && flagged)
	}
	metrics.RecordLedgerOperation("spend", "completed", amount)
	s.logger.CtxInfo(ctx, "spending recorded",
		"principal", principal,
		"record_id", rec.ID,
		"amount", amount,
		"emotional_tag", tag,
		"risk_level", assessment.Level,
		"flagged", flagged,
	)

	if flagged {
		s.raiseSpendingAlerts(ctx, principal, rec, assessment)
	}
	if hasWallet {
		s.raiseLimitAlerts(ctx, principal, policy, before, after)
	}
	return &out, nil
}

func (s *Service) raiseSpendingAlerts(ctx context.Context, principal entities.Principal, rec *entities.SpendingRecord, assessment risk.Assessment) {
	severity := entities.SeverityMedium
	if assessment.Level == entities.RiskHigh {
		severity = entities.SeverityHigh
	}
	metadata := map[string]string{
		"record_id":        rec.ID,
		"amount":           fmt.Sprintf("%d", rec.Amount),
		"emotional_tag":    string(rec.EmotionalTag),
		"transaction_type": rec.TransactionType,
		"risk_level":       string(assessment.Level),
		"risk_points":      fmt.Sprintf("%d", assessment.Total),
	}

	s.raise(ctx, principal, entities.SafetyAlert{
		Type:     entities.AlertSpendingRisk,
		Severity: severity,
		Message:  fmt.Sprintf("Suspicious %s spend of %d units while %s", assessment.Level, rec.Amount, rec.EmotionalTag),
		Metadata: metadata,
	})

	if s.circles == nil {
		return
	}
	spender := principal
	for _, owner := range s.circles.OwnersGranting(principal, entities.PermissionSpendingAlerts) {
		s.raise(ctx, owner, entities.SafetyAlert{
			Type:     entities.AlertSpendingCircle,
			Severity: severity,
			Message:  fmt.Sprintf("%s recorded a suspicious spend of %d units", principal, rec.Amount),
			Metadata: metadata,
			Reporter: &spender,
		})
	}
}

// raiseLimitAlerts fires when this spend crossed the warning threshold or the daily limit
func (s *Service) raiseLimitAlerts(ctx context.Context, principal entities.Principal, policy entities.SpendingPolicy, before, after uint64) {
	var severity entities.Severity
	var limitName string
	var limit uint64
	switch {
	case before <= policy.DailyLimit && after > policy.DailyLimit:
		severity, limitName, limit = entities.SeverityHigh, "daily_limit", policy.DailyLimit
	case before <= policy.WarningThreshold && after > policy.WarningThreshold:
		severity, limitName, limit = entities.SeverityMedium, "warning_threshold", policy.WarningThreshold
	default:
		return
	}
	s.raise(ctx, principal, entities.SafetyAlert{
		Type:     entities.AlertSpendingLimit,
		Severity: severity,
		Message:  fmt.Sprintf("Spending in the last %s exceeded your %s", s.cfg.LimitWindow, strings.ReplaceAll(limitName, "_", " ")),
		Metadata: map[string]string{
			"limit":        limitName,
			"limit_value":  fmt.Sprintf("%d", limit),
			"window_total": fmt.Sprintf("%d", after),
		},
	})
}

func (s *Service) windowTotalLocked(principal entities.Principal, now time.Time) uint64 {
	cutoff := now.Add(-s.cfg.LimitWindow)
	var total uint64
	records := s.spending[principal]
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].Timestamp.After(cutoff) {
			break
		}
		total = saturatingAdd(total, records[i].Amount)
	}
	return total
}

func safetyRating(records []*entities.SpendingRecord) entities.SafetyRating {
	if len(records) == 0 {
		return entities.SafetySafe
	}
	high := 0
	for _, r := range records {
		if r.RiskAssessment == entities.RiskHigh {
			high++
		}
	}
	pct := high * 100 / len(records)
	switch {
	case pct >= highRiskRatioPercent:
		return entities.SafetyHighRisk
	case pct >= cautionRatioPercent:
		return entities.SafetyCaution
	default:
		return entities.SafetySafe
	}
}

// GetSpendingHistory returns up to limit records, newest first. limit <= 0 uses the default.
func (s *Service) GetSpendingHistory(ctx context.Context, principal entities.Principal, limit int) ([]entities.SpendingRecord, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.spending[principal]
	n := len(records)
	if n > limit {
		n = limit
	}
	out := make([]entities.SpendingRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *records[i])
	}
	return out, nil
}

// GetSpendingAnalysis summarizes the caller's spending and suggests next steps
func (s *Service) GetSpendingAnalysis(ctx context.Context, principal entities.Principal) (*entities.SpendingAnalysis, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}

	s.mu.RLock()
	w, err := s.wallets.GetWallet(ctx, principal)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	records := s.spending[principal]
	var high uint64
	for _, r := range records {
		if r.RiskAssessment == entities.RiskHigh {
			high++
		}
	}
	total := uint64(len(records))
	s.mu.RUnlock()

	analysis := &entities.SpendingAnalysis{
		TotalSpent:           w.TotalSpent,
		TotalTransactions:    total,
		HighRiskTransactions: high,
		MostEmotionalTag:     mostEmotionalTag(w.SpendingPolicy.EmotionalStateTotals),
		SafetyRating:         w.SafetyRating,
		TrustScore:           w.TrustScore,
		Recommendations:      s.recommendations(w),
	}
	if total > 0 {
		analysis.RiskPercentage = uint32(high * 100 / total)
	}
	return analysis, nil
}

// mostEmotionalTag picks the tag with the largest spend; ties go to the lexically smaller tag
func mostEmotionalTag(totals map[entities.EmotionalTag]uint64) entities.EmotionalTag {
	best := entities.EmotionNeutral
	var bestAmount uint64
	found := false
	for tag, amount := range totals {
		if !found || amount > bestAmount || (amount == bestAmount && tag < best) {
			best, bestAmount, found = tag, amount, true
		}
	}
	return best
}

func (s *Service) recommendations(w *entities.Wallet) []string {
	var recs []string
	switch w.SafetyRating {
	case entities.SafetyHighRisk:
		recs = append(recs,
			"High emotional spending detected - consider a cooling off period",
			"Try mindfulness before making purchases",
		)
	case entities.SafetyCaution:
		recs = append(recs, "Moderate emotional spending - monitor your patterns")
	default:
		recs = append(recs, "Healthy spending patterns maintained")
	}
	if w.TrustScore < lowTrustScore {
		recs = append(recs, "Build trust through verified transactions")
	}
	if last := w.SpendingPolicy.LastLargePurchase; last != nil && s.clock.Now().Sub(*last) < w.SpendingPolicy.CoolingOffPeriod {
		recs = append(recs, "Cooling off period active - wait before large purchases")
	}
	if len(w.EmergencyContacts) == 0 {
		recs = append(recs, "Add emergency contacts for enhanced safety")
	}
	return recs
}
