package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatsync/pkg/models"
)

func TestAccountEntityIsDeterministic(t *testing.T) {
	org := models.Organization{OrgName: "Acme", OrgID: "ORG-42"}

	a := AccountEntity(org)
	b := AccountEntity(org)

	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)
	assert.Equal(t, "threatstack:account:org-42", a.Key)
	assert.Equal(t, models.AccountEntityType, a.Type)
	assert.Equal(t, "Acme", a.DisplayName)

	renamed := AccountEntity(models.Organization{OrgName: "Acme Corp", OrgID: "ORG-42"})
	assert.Equal(t, a.Key, renamed.Key)
}

func TestAgentEntitiesMapsFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	agents := []*models.Agent{
		{
			ID:          "a1",
			InstanceID:  "i-1",
			Status:      "Online",
			Hostname:    "web-1",
			IPAddresses: models.IPAddresses{Private: []string{"10.0.0.1"}},
			Tags:        []models.AgentTag{{Key: "role", Value: "web"}, {Key: "env", Value: "prod"}},
			CreatedAt:   created,
		},
		{ID: "a2", Status: "offline", Hostname: "db-1"},
		nil,
		{Hostname: "no-id"},
	}

	got := AgentEntities(agents)
	require.Len(t, got, 2)

	assert.Equal(t, "a1", got[0].Key)
	assert.Equal(t, "i-1", got[0].InstanceID)
	assert.True(t, got[0].Online)
	assert.Equal(t, "online", got[0].Status)
	assert.Equal(t, []string{"env=prod", "role=web"}, got[0].Tags)
	assert.Equal(t, created.UnixMilli(), got[0].CreatedOn)

	assert.Equal(t, "a2", got[1].Key)
	assert.False(t, got[1].Online)
	assert.Empty(t, got[1].InstanceID)
	assert.Nil(t, got[1].Tags)
	assert.Zero(t, got[1].CreatedOn)
}

func TestAgentEntityDisplayNameFallback(t *testing.T) {
	got := AgentEntities([]*models.Agent{{ID: "a3", InstanceID: "i-3"}})
	require.Len(t, got, 1)
	assert.Equal(t, "i-3", got[0].DisplayName)
}

func TestAccountRelationshipsOnePerAgent(t *testing.T) {
	account := AccountEntity(models.Organization{OrgName: "Acme", OrgID: "o1"})
	agents := AgentEntities([]*models.Agent{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}})

	rels := AccountRelationships(account, agents, models.AccountAgentRelationshipType)
	require.Len(t, rels, 3)

	keys := map[string]bool{}
	for i, rel := range rels {
		assert.Equal(t, account.Key, rel.FromEntityKey)
		assert.Equal(t, agents[i].Key, rel.ToEntityKey)
		assert.Equal(t, models.AccountAgentRelationshipType, rel.Type)
		keys[rel.GraphKey()] = true
	}
	assert.Len(t, keys, 3)

	assert.Empty(t, AccountRelationships(nil, agents, models.AccountAgentRelationshipType))
}

func TestCVEReturnsIndependentFindings(t *testing.T) {
	details := FindingDetails{Package: "openssl", Severity: "HIGH", Vector: "network", SystemPackage: "openssl-1.1"}

	a := CVE("cve-2026-1234", details)
	b := CVE("CVE-2026-1234", details)

	require.NotSame(t, a, b)
	assert.Equal(t, "CVE-2026-1234", a.CVENumber)
	assert.Equal(t, "cve-2026-1234", a.Key)
	assert.Equal(t, "high", a.Severity)
	assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2026-1234", a.WebLink)
	assert.NotNil(t, a.Targets)
	assert.Empty(t, a.Targets)

	a.Targets = append(a.Targets, "i-1")
	assert.Empty(t, b.Targets)
}

func TestAgentFindingMappedRelationship(t *testing.T) {
	agent := AgentEntities([]*models.Agent{{ID: "a1", Hostname: "h1"}})[0]
	finding := CVE("CVE-1", FindingDetails{})

	rel := AgentFindingMappedRelationship(agent, finding, "bash-5.0", true)
	assert.Equal(t, "a1|identified|cve-1|bash-5.0", rel.Key)
	assert.Equal(t, models.AgentFindingRelationshipType, rel.Type)
	assert.True(t, rel.Suppressed)
	require.NotNil(t, rel.Mapping)
	assert.Same(t, finding, rel.Mapping.TargetEntity)
	assert.Equal(t, "a1", rel.Mapping.SourceEntityKey)

	finding.Targets = append(finding.Targets, TargetOf(agent))
	assert.Equal(t, []string{"h1"}, rel.Mapping.TargetEntity.Targets)
}

func TestTargetOfPrefersInstanceID(t *testing.T) {
	assert.Equal(t, "i-9", TargetOf(&models.AgentEntity{InstanceID: "i-9", Hostname: "h9"}))
	assert.Equal(t, "h9", TargetOf(&models.AgentEntity{Hostname: "h9"}))
}
