package pipeline

import (
	"context"
	"fmt"

	"threatsync/internal/graph/convert"
	"threatsync/internal/logger"
	"threatsync/internal/rules"
	"threatsync/pkg/models"
)

// VulnerabilityFetcher loads one cached vulnerability record. A nil record
// with a nil error means the id has no usable cached payload.
type VulnerabilityFetcher func(ctx context.Context, id string) (*models.VulnerabilityData, error)

// FanoutStats summarizes one vulnerability join.
type FanoutStats struct {
	Vulnerabilities int
	Missing         int
	Relationships   int
	SkippedTargets  int
}

// BuildVulnerabilityRelationships joins vulnerability records against the
// current agents, one id at a time, and returns one agent-finding
// relationship per known affected agent. References to unknown agents are
// dropped. Each finding's targets list the instance id, else hostname, of
// every agent it was joined to, in encounter order.
func BuildVulnerabilityRelationships(ctx context.Context, ids []string, agents []*models.AgentEntity, fetch VulnerabilityFetcher, engine rules.Engine) ([]*models.Relationship, FanoutStats, error) {
	var stats FanoutStats

	agentsByID := make(map[string]*models.AgentEntity, len(agents))
	for _, agent := range agents {
		if agent == nil {
			continue
		}
		agentsByID[agent.ID] = agent
	}

	var out []*models.Relationship
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		data, err := fetch(ctx, id)
		if err != nil {
			return nil, stats, fmt.Errorf("load vulnerability %s: %w", id, err)
		}
		if data == nil {
			stats.Missing++
			logger.Warnf("Vulnerability %s listed in cache but has no usable data", id)
			continue
		}
		stats.Vulnerabilities++

		vuln := data.Vulnerability
		finding := convert.CVE(vuln.CVENumber, convert.FindingDetails{
			Package:       vuln.ReportedPackage,
			Severity:      vuln.Severity,
			Vector:        vuln.VectorType,
			SystemPackage: vuln.SystemPackage,
		})
		if engine != nil {
			finding.Tags = engine.Apply(ctx, &vuln)
		}

		for _, server := range data.VulnerableServers {
			agent, ok := agentsByID[server.AgentID]
			if !ok {
				stats.SkippedTargets++
				continue
			}
			finding.Targets = append(finding.Targets, convert.TargetOf(agent))
			out = append(out, convert.AgentFindingMappedRelationship(agent, finding, vuln.SystemPackage, vuln.IsSuppressed))
		}
	}

	stats.Relationships = len(out)
	return out, stats, nil
}
