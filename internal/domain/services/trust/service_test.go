package trust

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/alerts"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/stats"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/graph"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/retry"
)

const (
	alice   entities.Principal = "alice-aa"
	bob     entities.Principal = "bob-bb"
	carol   entities.Principal = "carol-cc"
	mallory entities.Principal = "mallory-mm"
)

type fixture struct {
	svc    *Service
	alerts *alerts.Service
	stats  *stats.Aggregator
	graph  *graph.MemoryClient
}

func newFixture() *fixture {
	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	clk.Step = time.Second
	log := logger.NewNop()
	agg := stats.NewAggregator(clk)
	alertSvc := alerts.NewService(agg, clk, log)
	client := graph.NewMemoryClient()
	projector := graph.NewProjector(client).WithPolicy(retry.PolicyNoRetry)
	return &fixture{
		svc:    NewService(alertSvc, agg, projector, clk, log),
		alerts: alertSvc,
		stats:  agg,
		graph:  client,
	}
}

func TestAddTrustConnectionUpserts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.AddTrustConnection(ctx, alice, bob, entities.ConnectionFriend, 60)
	require.NoError(t, err)
	second, err := f.svc.AddTrustConnection(ctx, alice, bob, entities.ConnectionFamily, 90)
	require.NoError(t, err)

	assert.Equal(t, first.EstablishedAt, second.EstablishedAt)
	assert.True(t, second.LastInteraction.After(first.LastInteraction))

	conns, err := f.svc.GetTrustConnections(ctx, alice)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, entities.ConnectionFamily, conns[0].ConnectionType)
	assert.Equal(t, uint8(90), conns[0].TrustLevel)
	assert.Equal(t, uint64(1), f.stats.Snapshot().TotalTrustConnections)
	assert.Len(t, f.graph.Writes(), 2)
}

func TestAddTrustConnectionValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.AddTrustConnection(ctx, alice, bob, entities.ConnectionFriend, 101)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.AddTrustConnection(ctx, alice, bob, "acquaintance", 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.AddTrustConnection(ctx, alice, alice, entities.ConnectionFriend, 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.AddTrustConnection(ctx, entities.AnonymousPrincipal, bob, entities.ConnectionFriend, 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	assert.Equal(t, uint64(0), f.stats.Snapshot().TotalTrustConnections)
}

func TestProjectionFailureDoesNotFailConnection(t *testing.T) {
	f := newFixture()
	f.graph.FailNext(1, errors.New("service unavailable"))

	conn, err := f.svc.AddTrustConnection(context.Background(), alice, bob, entities.ConnectionFriend, 50)
	require.NoError(t, err)
	assert.Equal(t, bob, conn.To)
	assert.Empty(t, f.graph.Writes())
}

func TestAddInnerCircleMember(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, err := f.svc.AddInnerCircleMember(ctx, alice, carol, entities.RelationshipFamily,
		[]entities.Permission{entities.PermissionFlagUsers, entities.PermissionFlagUsers, entities.PermissionSpendingAlerts})
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultInnerCircleTrust, m.TrustLevel)
	assert.Equal(t, []entities.Permission{entities.PermissionFlagUsers, entities.PermissionSpendingAlerts}, m.Permissions)

	_, err = f.svc.AddInnerCircleMember(ctx, alice, carol, entities.RelationshipFriend, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	_, err = f.svc.AddInnerCircleMember(ctx, alice, bob, "coworker", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.AddInnerCircleMember(ctx, alice, bob, entities.RelationshipFriend, []entities.Permission{"read_dms"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	circle, err := f.svc.GetInnerCircle(ctx, alice)
	require.NoError(t, err)
	require.Len(t, circle, 1)
	assert.Equal(t, carol, circle[0].Member)
	assert.Len(t, f.graph.Writes(), 1)
}

func TestOwnersGranting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.AddInnerCircleMember(ctx, bob, carol, entities.RelationshipFriend, []entities.Permission{entities.PermissionSpendingAlerts})
	require.NoError(t, err)
	_, err = f.svc.AddInnerCircleMember(ctx, alice, carol, entities.RelationshipFamily, []entities.Permission{entities.PermissionSpendingAlerts})
	require.NoError(t, err)
	_, err = f.svc.AddInnerCircleMember(ctx, mallory, carol, entities.RelationshipFriend, []entities.Permission{entities.PermissionViewMatches})
	require.NoError(t, err)

	assert.Equal(t, []entities.Principal{alice, bob}, f.svc.OwnersGranting(carol, entities.PermissionSpendingAlerts))
	assert.Empty(t, f.svc.OwnersGranting(carol, entities.PermissionFlagUsers))
}

func TestFlagUserThreatRequiresPermission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.AddInnerCircleMember(ctx, alice, carol, entities.RelationshipFriend, []entities.Permission{entities.PermissionViewMatches})
	require.NoError(t, err)

	_, err = f.svc.FlagUserThreat(ctx, carol, mallory, "romance_scam", "asked for gift cards", 90)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	list, err := f.alerts.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFlagUserThreatNotifiesGrantingOwners(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.AddInnerCircleMember(ctx, alice, carol, entities.RelationshipFriend, []entities.Permission{entities.PermissionFlagUsers})
	require.NoError(t, err)
	_, err = f.svc.AddInnerCircleMember(ctx, bob, carol, entities.RelationshipFriend, []entities.Permission{entities.PermissionViewMatches})
	require.NoError(t, err)

	threat, err := f.svc.FlagUserThreat(ctx, carol, mallory, "romance_scam", "asked for gift cards", 85)
	require.NoError(t, err)
	assert.Equal(t, ThreatID(mallory, "romance_scam"), threat.ThreatID)
	assert.Equal(t, []entities.Principal{carol}, threat.Reporters)

	list, err := f.alerts.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	a := list[0]
	assert.Equal(t, entities.AlertInnerCircleFlag, a.Type)
	assert.Equal(t, entities.SeverityHigh, a.Severity)
	assert.Equal(t, "mallory-mm", a.Metadata["flagged_user"])
	assert.Equal(t, "romance_scam", a.Metadata["threat_type"])
	assert.Equal(t, "asked for gift cards", a.Metadata["evidence"])
	assert.Equal(t, "85", a.Metadata["severity"])
	require.NotNil(t, a.Reporter)
	assert.Equal(t, carol, *a.Reporter)

	bobAlerts, err := f.alerts.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobAlerts)
}

func TestFlagUserThreatMergesReporters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, member := range []entities.Principal{carol, bob} {
		_, err := f.svc.AddInnerCircleMember(ctx, alice, member, entities.RelationshipFriend, []entities.Permission{entities.PermissionFlagUsers})
		require.NoError(t, err)
	}

	_, err := f.svc.FlagUserThreat(ctx, carol, mallory, "catfish", "", 40)
	require.NoError(t, err)
	_, err = f.svc.FlagUserThreat(ctx, carol, mallory, "catfish", "", 40)
	require.NoError(t, err)
	threat, err := f.svc.FlagUserThreat(ctx, bob, mallory, "catfish", "", 40)
	require.NoError(t, err)

	assert.Equal(t, []entities.Principal{carol, bob}, threat.Reporters)
	assert.True(t, threat.LastReportedAt.After(threat.FirstReportedAt))

	stored, err := f.svc.GetCommunityThreat(ctx, threat.ThreatID)
	require.NoError(t, err)
	assert.Equal(t, threat.Reporters, stored.Reporters)

	list, err := f.alerts.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, entities.SeverityMedium, list[0].Severity)
}

func TestFlagUserThreatValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.AddInnerCircleMember(ctx, alice, carol, entities.RelationshipFriend, []entities.Permission{entities.PermissionFlagUsers})
	require.NoError(t, err)

	_, err = f.svc.FlagUserThreat(ctx, carol, mallory, "catfish", "", 101)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.FlagUserThreat(ctx, carol, mallory, "   ", "", 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.GetCommunityThreat(ctx, "threat_missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestThreatIDIsStable(t *testing.T) {
	assert.Equal(t, ThreatID(mallory, "Catfish"), ThreatID(mallory, " catfish "))
	assert.NotEqual(t, ThreatID(mallory, "catfish"), ThreatID(bob, "catfish"))
}
