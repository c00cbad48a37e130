// Package scamradar scores chat messages for scam patterns and keeps a short
// per-principal log of the results.
package scamradar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/risk"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

const (
	// MaxLogEntries bounds each principal's analysis log; the oldest entry is evicted first
	MaxLogEntries = 100

	// AlertThreshold is the confidence at which a CHAT_SCAM safety alert is raised
	AlertThreshold   = 75
	criticalAt       = 90
	maxMessageLength = 10_000
)

type AlertRaiser interface {
	Raise(ctx context.Context, owner entities.Principal, alert entities.SafetyAlert) (*entities.SafetyAlert, error)
}

type Service struct {
	mu   sync.RWMutex
	logs map[entities.Principal][]entities.ScamRadarAlert

	alerts AlertRaiser
	clock  clock.Clock
	logger *logger.Logger
}

func NewService(alerts AlertRaiser, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		logs:   make(map[entities.Principal][]entities.ScamRadarAlert),
		alerts: alerts,
		clock:  clk,
		logger: log,
	}
}

// AnalyzeMessage scores message and records the result for principal. A confidence of
// AlertThreshold or more also raises a CHAT_SCAM safety alert.
func (s *Service) AnalyzeMessage(ctx context.Context, principal entities.Principal, message string, senderContext *string) (*entities.ScamRadarAlert, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, apperrors.NewValidationErrorf("message must be at most %d characters", maxMessageLength)
	}

	indicators, confidence := risk.ScoreMessage(message)
	metrics.RecordScamConfidence(confidence)

	result := entities.ScamRadarAlert{
		ID:                "scam_radar_" + uuid.NewString(),
		TargetMessage:     message,
		Indicators:        indicators,
		Confidence:        confidence,
		SuggestedResponse: risk.Advise(confidence),
		CreatedAt:         s.clock.Now(),
	}

	s.mu.Lock()
	entries := append(s.logs[principal], result)
	if len(entries) > MaxLogEntries {
		entries = append([]entities.ScamRadarAlert(nil), entries[len(entries)-MaxLogEntries:]...)
	}
	s.logs[principal] = entries
	s.mu.Unlock()

	s.logger.CtxInfo(ctx, "chat message analyzed",
		"principal", principal,
		"confidence", confidence,
		"indicators", indicators,
	)

	if confidence >= AlertThreshold && s.alerts != nil {
		s.raiseChatScam(ctx, principal, result, senderContext)
	}

	out := result
	out.Indicators = append([]entities.ScamIndicator(nil), indicators...)
	return &out, nil
}

func (s *Service) raiseChatScam(ctx context.Context, principal entities.Principal, result entities.ScamRadarAlert, senderContext *string) {
	severity := entities.SeverityHigh
	if result.Confidence >= criticalAt {
		severity = entities.SeverityCritical
	}
	names := make([]string, len(result.Indicators))
	for i, ind := range result.Indicators {
		names[i] = string(ind)
	}
	metadata := map[string]string{
		"scam_confidence":  fmt.Sprintf("%d", result.Confidence),
		"indicators":       strings.Join(names, ","),
		"original_message": result.TargetMessage,
		"scam_radar_id":    result.ID,
	}
	if senderContext != nil {
		metadata["sender_context"] = *senderContext
	}
	chat := result.TargetMessage

	_, err := s.alerts.Raise(ctx, principal, entities.SafetyAlert{
		Type:        entities.AlertChatScam,
		Severity:    severity,
		Message:     fmt.Sprintf("ScamRadar detected potential scam (%d%% confidence)", result.Confidence),
		Metadata:    metadata,
		ChatContext: &chat,
	})
	if err != nil {
		s.logger.CtxError(ctx, "failed to raise chat scam alert", "principal", principal, "error", err)
	}
}

// Recent returns principal's analysis log, newest first
func (s *Service) Recent(ctx context.Context, principal entities.Principal) ([]entities.ScamRadarAlert, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[principal]
	out := make([]entities.ScamRadarAlert, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		e.Indicators = append([]entities.ScamIndicator(nil), e.Indicators...)
		out = append(out, e)
	}
	return out, nil
}
