package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
	"github.com/cafe-connect/trust_ledger/pkg/retry"
)

const (
	upsertTrustCypher = `
MERGE (a:Identity {principal: $from})
MERGE (b:Identity {principal: $to})
MERGE (a)-[r:TRUSTS]->(b)
SET r.connection_type = $connectionType,
    r.trust_level = $trustLevel,
    r.established_at = $establishedAt,
    r.last_interaction = $lastInteraction`

	upsertMemberCypher = `
MERGE (o:Identity {principal: $owner})
MERGE (m:Identity {principal: $member})
MERGE (o)-[r:INNER_CIRCLE]->(m)
SET r.relationship = $relationship,
    r.permissions = $permissions,
    r.trust_level = $trustLevel,
    r.added_at = $addedAt`

	upsertThreatCypher = `
MERGE (t:Identity {principal: $target})
MERGE (r:Identity {principal: $reporter})
MERGE (r)-[f:FLAGGED {threat_id: $threatId}]->(t)
SET f.threat_type = $threatType,
    f.reported_at = $reportedAt`

	reportersCypher = `
MATCH (r:Identity)-[:FLAGGED]->(t:Identity {principal: $target})
RETURN DISTINCT r.principal AS reporter
ORDER BY reporter`
)

// Projector mirrors trust edges, circle memberships and threat reports into the graph
type Projector struct {
	client Client
	policy retry.Policy
}

func NewProjector(client Client) *Projector {
	return &Projector{client: client, policy: retry.PolicyQuick}
}

// WithPolicy returns a projector using a different retry policy
func (p *Projector) WithPolicy(policy retry.Policy) *Projector {
	return &Projector{client: p.client, policy: policy}
}

func (p *Projector) ProjectConnection(ctx context.Context, c entities.TrustConnection) error {
	return p.write(ctx, "trust_connection", upsertTrustCypher, map[string]any{
		"from":            c.From.String(),
		"to":              c.To.String(),
		"connectionType":  string(c.ConnectionType),
		"trustLevel":      int64(c.TrustLevel),
		"establishedAt":   c.EstablishedAt.UnixMilli(),
		"lastInteraction": c.LastInteraction.UnixMilli(),
	})
}

func (p *Projector) ProjectMembership(ctx context.Context, m entities.InnerCircleMember) error {
	perms := make([]string, len(m.Permissions))
	for i, perm := range m.Permissions {
		perms[i] = string(perm)
	}
	return p.write(ctx, "inner_circle", upsertMemberCypher, map[string]any{
		"owner":        m.Owner.String(),
		"member":       m.Member.String(),
		"relationship": string(m.Relationship),
		"permissions":  perms,
		"trustLevel":   int64(m.TrustLevel),
		"addedAt":      m.AddedAt.UnixMilli(),
	})
}

func (p *Projector) ProjectThreatReport(ctx context.Context, reporter entities.Principal, t entities.CommunityThreat) error {
	return p.write(ctx, "threat_report", upsertThreatCypher, map[string]any{
		"target":     t.Target.String(),
		"reporter":   reporter.String(),
		"threatId":   t.ThreatID,
		"threatType": t.ThreatType,
		"reportedAt": t.LastReportedAt.UnixMilli(),
	})
}

// Reporters lists every principal that has flagged target, across threat types
func (p *Projector) Reporters(ctx context.Context, target entities.Principal) ([]entities.Principal, error) {
	var res Result
	err := retry.Do(ctx, p.policy, func(ctx context.Context) error {
		var err error
		res, err = p.client.ExecuteRead(ctx, reportersCypher, map[string]any{"target": target.String()})
		return err
	}, retryable)
	if err != nil {
		metrics.RecordGraphProjection("reporters", "failed")
		return nil, fmt.Errorf("query reporters of %s: %w", target, err)
	}

	out := make([]entities.Principal, 0, len(res.Records))
	for _, rec := range res.Records {
		if s, ok := rec["reporter"].(string); ok {
			out = append(out, entities.Principal(s))
		}
	}
	return out, nil
}

func (p *Projector) write(ctx context.Context, kind, cypher string, params map[string]any) error {
	err := retry.Do(ctx, p.policy, func(ctx context.Context) error {
		_, err := p.client.ExecuteWrite(ctx, cypher, params)
		return err
	}, retryable)
	if err != nil {
		metrics.RecordGraphProjection(kind, "failed")
		return fmt.Errorf("project %s: %w", kind, err)
	}
	metrics.RecordGraphProjection(kind, "ok")
	return nil
}

func retryable(err error) bool {
	return neo4j.IsRetryable(err) || apperrors.ShouldRetry(err)
}
