// Package trust keeps the directed trust graph, each owner's inner circle and the
// community threat reports raised by circle members.
package trust

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

const (
	maxThreatTypeLength = 64
	maxEvidenceLength   = 2000
	highSeverity        = 80
	maxSeverity         = 100
)

// Projector mirrors graph changes into an external graph database
type Projector interface {
	ProjectConnection(ctx context.Context, c entities.TrustConnection) error
	ProjectMembership(ctx context.Context, m entities.InnerCircleMember) error
	ProjectThreatReport(ctx context.Context, reporter entities.Principal, t entities.CommunityThreat) error
}

type AlertRaiser interface {
	Raise(ctx context.Context, owner entities.Principal, alert entities.SafetyAlert) (*entities.SafetyAlert, error)
}

type StatsRecorder interface {
	RecordTrustConnection()
}

type Service struct {
	mu          sync.RWMutex
	connections map[entities.Principal][]*entities.TrustConnection
	circles     map[entities.Principal][]*entities.InnerCircleMember
	threats     map[string]*entities.CommunityThreat

	alerts    AlertRaiser
	stats     StatsRecorder
	projector Projector
	clock     clock.Clock
	logger    *logger.Logger
}

// NewService builds the trust service. projector may be nil when no graph database is configured.
func NewService(alerts AlertRaiser, stats StatsRecorder, projector Projector, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		connections: make(map[entities.Principal][]*entities.TrustConnection),
		circles:     make(map[entities.Principal][]*entities.InnerCircleMember),
		threats:     make(map[string]*entities.CommunityThreat),
		alerts:      alerts,
		stats:       stats,
		projector:   projector,
		clock:       clk,
		logger:      log,
	}
}

// AddTrustConnection creates or refreshes the edge from -> to. Only new edges count
// towards the platform total.
func (s *Service) AddTrustConnection(ctx context.Context, from, to entities.Principal, connType entities.ConnectionType, level uint8) (*entities.TrustConnection, error) {
	if err := entities.RequireCaller(from); err != nil {
		return nil, err
	}
	if to.IsAnonymous() {
		return nil, apperrors.NewValidationError("trust target must be a real principal")
	}
	if to == from {
		return nil, apperrors.NewValidationError("cannot add a trust connection to yourself")
	}
	if level > maxSeverity {
		return nil, apperrors.NewValidationError("trust level cannot exceed 100")
	}
	if !connType.IsValid() {
		return nil, apperrors.NewValidationErrorf("invalid connection type %q", connType)
	}

	s.mu.Lock()
	now := s.clock.Now()
	var conn *entities.TrustConnection
	for _, c := range s.connections[from] {
		if c.To == to {
			conn = c
			break
		}
	}
	created := conn == nil
	if created {
		conn = &entities.TrustConnection{
			From:          from,
			To:            to,
			EstablishedAt: now,
		}
		s.connections[from] = append(s.connections[from], conn)
	}
	conn.ConnectionType = connType
	conn.TrustLevel = level
	conn.LastInteraction = now
	out := *conn
	s.mu.Unlock()

	if created && s.stats != nil {
		s.stats.RecordTrustConnection()
	}
	s.logger.CtxInfo(ctx, "trust connection saved",
		"from", from,
		"to", to,
		"connection_type", connType,
		"trust_level", level,
		"created", created,
	)

	if s.projector != nil {
		if err := s.projector.ProjectConnection(ctx, out); err != nil {
			s.logger.CtxWarn(ctx, "trust connection projection failed", "from", from, "to", to, "error", err)
		}
	}
	return &out, nil
}

// GetTrustConnections lists principal's outgoing edges in creation order
func (s *Service) GetTrustConnections(ctx context.Context, principal entities.Principal) ([]entities.TrustConnection, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.TrustConnection, 0, len(s.connections[principal]))
	for _, c := range s.connections[principal] {
		out = append(out, *c)
	}
	return out, nil
}

// AddInnerCircleMember grants member permissions in owner's circle. A member can be
// added once; permissions are de-duplicated.
func (s *Service) AddInnerCircleMember(ctx context.Context, owner, member entities.Principal, rel entities.Relationship, perms []entities.Permission) (*entities.InnerCircleMember, error) {
	if err := entities.RequireCaller(owner); err != nil {
		return nil, err
	}
	if member.IsAnonymous() {
		return nil, apperrors.NewValidationError("inner circle member must be a real principal")
	}
	if member == owner {
		return nil, apperrors.NewValidationError("cannot add yourself to your inner circle")
	}
	if !rel.IsValid() {
		return nil, apperrors.NewValidationErrorf("invalid relationship type %q", rel)
	}
	granted := make([]entities.Permission, 0, len(perms))
	for _, p := range perms {
		if !p.IsValid() {
			return nil, apperrors.NewValidationErrorf("invalid permission %q", p)
		}
		if !containsPermission(granted, p) {
			granted = append(granted, p)
		}
	}

	s.mu.Lock()
	for _, m := range s.circles[owner] {
		if m.Member == member {
			s.mu.Unlock()
			return nil, apperrors.NewConflictError("member already in inner circle")
		}
	}
	m := &entities.InnerCircleMember{
		Owner:        owner,
		Member:       member,
		Relationship: rel,
		Permissions:  granted,
		AddedAt:      s.clock.Now(),
		TrustLevel:   entities.DefaultInnerCircleTrust,
	}
	s.circles[owner] = append(s.circles[owner], m)
	out := cloneMember(m)
	s.mu.Unlock()

	s.logger.CtxInfo(ctx, "inner circle member added", "owner", owner, "member", member, "relationship", rel, "permissions", granted)

	if s.projector != nil {
		if err := s.projector.ProjectMembership(ctx, out); err != nil {
			s.logger.CtxWarn(ctx, "inner circle projection failed", "owner", owner, "member", member, "error", err)
		}
	}
	return &out, nil
}

func (s *Service) GetInnerCircle(ctx context.Context, owner entities.Principal) ([]entities.InnerCircleMember, error) {
	if err := entities.RequireCaller(owner); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.InnerCircleMember, 0, len(s.circles[owner]))
	for _, m := range s.circles[owner] {
		out = append(out, cloneMember(m))
	}
	return out, nil
}

// OwnersGranting returns, sorted, every owner whose circle holds member with perm
func (s *Service) OwnersGranting(member entities.Principal, perm entities.Permission) []entities.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownersGrantingLocked(member, perm)
}

func (s *Service) ownersGrantingLocked(member entities.Principal, perm entities.Permission) []entities.Principal {
	var owners []entities.Principal
	for owner, members := range s.circles {
		for _, m := range members {
			if m.Member == member && m.Has(perm) {
				owners = append(owners, owner)
				break
			}
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

// FlagUserThreat lets a member holding flag_users in any circle report target. The
// report is merged into the community threat for (target, threatType) and every owner
// who granted the reporter flag_users is alerted.
func (s *Service) FlagUserThreat(ctx context.Context, reporter, target entities.Principal, threatType, evidence string, severity uint8) (*entities.CommunityThreat, error) {
	if err := entities.RequireCaller(reporter); err != nil {
		return nil, err
	}
	threatType = strings.TrimSpace(threatType)
	if threatType == "" {
		return nil, apperrors.NewValidationError("threat type is required")
	}
	if utf8.RuneCountInString(threatType) > maxThreatTypeLength {
		return nil, apperrors.NewValidationErrorf("threat type must be at most %d characters", maxThreatTypeLength)
	}
	if utf8.RuneCountInString(evidence) > maxEvidenceLength {
		return nil, apperrors.NewValidationErrorf("evidence must be at most %d characters", maxEvidenceLength)
	}
	if severity > maxSeverity {
		return nil, apperrors.NewValidationError("severity cannot exceed 100")
	}
	if target.IsAnonymous() {
		return nil, apperrors.NewValidationError("flagged user must be a real principal")
	}

	s.mu.Lock()
	owners := s.ownersGrantingLocked(reporter, entities.PermissionFlagUsers)
	if len(owners) == 0 {
		s.mu.Unlock()
		metrics.RecordThreatFlag("denied")
		return nil, apperrors.NewAuthError("you don't have permission to flag users")
	}

	now := s.clock.Now()
	id := ThreatID(target, threatType)
	threat, ok := s.threats[id]
	if !ok {
		threat = &entities.CommunityThreat{
			ThreatID:        id,
			Target:          target,
			ThreatType:      threatType,
			FirstReportedAt: now,
		}
		s.threats[id] = threat
	}
	if !containsPrincipal(threat.Reporters, reporter) {
		threat.Reporters = append(threat.Reporters, reporter)
	}
	threat.LastReportedAt = now
	out := cloneThreat(threat)
	s.mu.Unlock()

	metrics.RecordThreatFlag("accepted")
	s.logger.CtxInfo(ctx, "user threat flagged",
		"threat_id", id,
		"reporter", reporter,
		"target", target,
		"threat_type", threatType,
		"severity", severity,
		"notified_owners", len(owners),
	)

	alertSeverity := entities.SeverityMedium
	if severity >= highSeverity {
		alertSeverity = entities.SeverityHigh
	}
	if s.alerts != nil {
		for _, owner := range owners {
			rep := reporter
			_, err := s.alerts.Raise(ctx, owner, entities.SafetyAlert{
				Type:     entities.AlertInnerCircleFlag,
				Severity: alertSeverity,
				Message:  fmt.Sprintf("Your trusted contact flagged a user for: %s", threatType),
				Metadata: map[string]string{
					"flagged_user": target.String(),
					"threat_type":  threatType,
					"evidence":     evidence,
					"severity":     fmt.Sprintf("%d", severity),
					"threat_id":    id,
				},
				Reporter: &rep,
			})
			if err != nil {
				s.logger.CtxError(ctx, "failed to raise threat alert", "owner", owner, "threat_id", id, "error", err)
			}
		}
	}

	if s.projector != nil {
		if err := s.projector.ProjectThreatReport(ctx, reporter, out); err != nil {
			s.logger.CtxWarn(ctx, "threat projection failed", "threat_id", id, "error", err)
		}
	}
	return &out, nil
}

func (s *Service) GetCommunityThreat(ctx context.Context, threatID string) (*entities.CommunityThreat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threats[threatID]
	if !ok {
		return nil, apperrors.NewNotFoundError("threat")
	}
	out := cloneThreat(t)
	return &out, nil
}

// ThreatID derives the stable identifier of the threat report for (target, threatType)
func ThreatID(target entities.Principal, threatType string) string {
	sum := sha256.Sum256([]byte(target.String() + "|" + strings.ToLower(strings.TrimSpace(threatType))))
	return "threat_" + hex.EncodeToString(sum[:12])
}

func cloneMember(m *entities.InnerCircleMember) entities.InnerCircleMember {
	out := *m
	out.Permissions = append([]entities.Permission(nil), m.Permissions...)
	return out
}

func cloneThreat(t *entities.CommunityThreat) entities.CommunityThreat {
	out := *t
	out.Reporters = append([]entities.Principal(nil), t.Reporters...)
	return out
}

func containsPermission(perms []entities.Permission, p entities.Permission) bool {
	for _, q := range perms {
		if q == p {
			return true
		}
	}
	return false
}

func containsPrincipal(list []entities.Principal, p entities.Principal) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
