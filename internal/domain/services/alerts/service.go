// Package alerts is the append-only safety alert ledger. Alerts are never removed;
// the only mutation is a one-way acknowledge.
package alerts

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

// StatsRecorder is notified after an alert is stored
type StatsRecorder interface {
	RecordAlert()
}

type Service struct {
	mu     sync.RWMutex
	byUser map[entities.Principal][]*entities.SafetyAlert
	byID   map[string]*entities.SafetyAlert

	stats  StatsRecorder
	clock  clock.Clock
	logger *logger.Logger
}

func NewService(stats StatsRecorder, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		byUser: make(map[entities.Principal][]*entities.SafetyAlert),
		byID:   make(map[string]*entities.SafetyAlert),
		stats:  stats,
		clock:  clk,
		logger: log,
	}
}

// Raise appends an alert for owner. Id, owner, timestamp and the acknowledged flag
// are always assigned here regardless of what the caller set.
func (s *Service) Raise(ctx context.Context, owner entities.Principal, alert entities.SafetyAlert) (*entities.SafetyAlert, error) {
	if err := entities.RequireCaller(owner); err != nil {
		return nil, err
	}
	if !alert.Severity.IsValid() {
		return nil, apperrors.NewValidationErrorf("unknown severity %q", alert.Severity)
	}
	if alert.Type == "" {
		return nil, apperrors.NewValidationError("alert type is required")
	}

	stored := alert
	stored.ID = "alert_" + uuid.NewString()
	stored.Owner = owner
	stored.Acknowledged = false
	stored.Metadata = copyMetadata(alert.Metadata)

	s.mu.Lock()
	stored.CreatedAt = s.clock.Now()
	s.byUser[owner] = append(s.byUser[owner], &stored)
	s.byID[stored.ID] = &stored
	s.mu.Unlock()

	if s.stats != nil {
		s.stats.RecordAlert()
	}
	metrics.RecordAlert(string(stored.Type), string(stored.Severity))
	s.logger.CtxInfo(ctx, "safety alert raised",
		"alert_id", stored.ID,
		"owner", owner,
		"type", stored.Type,
		"severity", stored.Severity,
	)

	out := stored
	out.Metadata = copyMetadata(stored.Metadata)
	return &out, nil
}

// Acknowledge marks an alert as seen. Acknowledging twice is a no-op.
func (s *Service) Acknowledge(ctx context.Context, owner entities.Principal, alertID string) error {
	if err := entities.RequireCaller(owner); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.byID[alertID]
	if !ok || alert.Owner != owner {
		return apperrors.NewNotFoundError("alert")
	}
	if !alert.Acknowledged {
		alert.Acknowledged = true
		s.logger.CtxInfo(ctx, "safety alert acknowledged", "alert_id", alertID, "owner", owner)
	}
	return nil
}

// List returns owner's alerts newest first. Storage order is left untouched.
func (s *Service) List(ctx context.Context, owner entities.Principal) ([]entities.SafetyAlert, error) {
	return s.list(owner, false)
}

// Unacknowledged returns only alerts still awaiting acknowledgement, newest first
func (s *Service) Unacknowledged(ctx context.Context, owner entities.Principal) ([]entities.SafetyAlert, error) {
	return s.list(owner, true)
}

func (s *Service) list(owner entities.Principal, pendingOnly bool) ([]entities.SafetyAlert, error) {
	if err := entities.RequireCaller(owner); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byUser[owner]
	out := make([]entities.SafetyAlert, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		if pendingOnly && stored[i].Acknowledged {
			continue
		}
		a := *stored[i]
		a.Metadata = copyMetadata(stored[i].Metadata)
		out = append(out, a)
	}
	return out, nil
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
