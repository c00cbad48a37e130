// Package identity owns per-principal profiles: nickname, trust score and verification level.
package identity

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/sanitize"
)

const (
	DefaultTrustScore        uint8 = 50
	DefaultVerificationLevel       = "Basic"
	MaxNicknameLength              = 32
	MaxTrustScore            uint8 = 100
	HighTrustScore           uint8 = 80
)

type Service struct {
	mu       sync.RWMutex
	profiles map[entities.Principal]*entities.Profile

	clock  clock.Clock
	logger *logger.Logger
}

func NewService(clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		profiles: make(map[entities.Principal]*entities.Profile),
		clock:    clk,
		logger:   log,
	}
}

// GetOrCreateProfile returns the caller's profile, creating it on first access
func (s *Service) GetOrCreateProfile(ctx context.Context, principal entities.Principal) (*entities.Profile, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.touchLocked(ctx, principal)
	return cloneProfile(p), nil
}

// TrustScore returns the stored score, or the default for a principal never seen
func (s *Service) TrustScore(principal entities.Principal) uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[principal]; ok {
		return p.TrustScore
	}
	return DefaultTrustScore
}

func (s *Service) SetNickname(ctx context.Context, principal entities.Principal, name string) (*entities.Profile, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	name = sanitize.Text(name)
	if utf8.RuneCountInString(name) > MaxNicknameLength {
		return nil, apperrors.NewValidationErrorf("nickname must be at most %d characters", MaxNicknameLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.touchLocked(ctx, principal)
	p.Nickname = &name
	return cloneProfile(p), nil
}

func (s *Service) SetTrustScore(ctx context.Context, principal entities.Principal, score uint8) (*entities.Profile, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if score > MaxTrustScore {
		return nil, apperrors.NewValidationErrorf("trust score must be between 0 and %d", MaxTrustScore)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.touchLocked(ctx, principal)
	p.TrustScore = score
	s.logger.CtxInfo(ctx, "trust score updated", "principal", principal, "trust_score", score)
	return cloneProfile(p), nil
}

// VerifyIdentity reports identity age and an identity-level risk
func (s *Service) VerifyIdentity(ctx context.Context, principal entities.Principal) (*entities.IdentityReport, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := cloneProfile(s.touchLocked(ctx, principal))
	s.mu.Unlock()

	age := p.LastSeen.Sub(p.CreatedAt)
	if age < 0 {
		age = 0
	}

	report := &entities.IdentityReport{
		Principal:         p.Principal,
		TrustScore:        p.TrustScore,
		VerificationLevel: p.VerificationLevel,
		IdentityAge:       formatAge(age),
		RiskLevel:         identityRisk(p.TrustScore, age),
		Recommendations: []string{
			fmt.Sprintf("Trust score: %d/100", p.TrustScore),
			"Identity age: " + formatAge(age),
		},
	}
	if p.TrustScore < 70 {
		report.Recommendations = append(report.Recommendations, "Low trust score - continue building reputation")
	}
	if age < time.Hour {
		report.Recommendations = append(report.Recommendations, "New identity - proceed with caution")
	}
	return report, nil
}

// PlatformStats counts known profiles
func (s *Service) PlatformStats(ctx context.Context) map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var highTrust uint64
	for _, p := range s.profiles {
		if p.TrustScore >= HighTrustScore {
			highTrust++
		}
	}
	return map[string]uint64{
		"total_users":      uint64(len(s.profiles)),
		"high_trust_users": highTrust,
	}
}

func (s *Service) touchLocked(ctx context.Context, principal entities.Principal) *entities.Profile {
	now := s.clock.Now()
	p, ok := s.profiles[principal]
	if !ok {
		p = &entities.Profile{
			Principal:         principal,
			TrustScore:        DefaultTrustScore,
			VerificationLevel: DefaultVerificationLevel,
			CreatedAt:         now,
			LastSeen:          now,
		}
		s.profiles[principal] = p
		s.logger.CtxInfo(ctx, "profile created", "principal", principal)
		return p
	}
	if now.After(p.LastSeen) {
		p.LastSeen = now
	}
	return p
}

func identityRisk(score uint8, age time.Duration) entities.RiskLevel {
	switch {
	case score >= HighTrustScore && age > 24*time.Hour:
		return entities.RiskLow
	case score >= 60 || age > time.Hour:
		return entities.RiskMedium
	default:
		return entities.RiskHigh
	}
}

func formatAge(age time.Duration) string {
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%d minutes", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(age/time.Hour))
	default:
		return fmt.Sprintf("%d days", int(age/(24*time.Hour)))
	}
}

func cloneProfile(p *entities.Profile) *entities.Profile {
	c := *p
	if p.Nickname != nil {
		n := *p.Nickname
		c.Nickname = &n
	}
	return &c
}
