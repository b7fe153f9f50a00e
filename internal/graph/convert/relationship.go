package convert

import "threatsync/pkg/models"

// AccountRelationships links the account to every agent.
func AccountRelationships(account *models.AccountEntity, agents []*models.AgentEntity, relType string) []*models.Relationship {
	if account == nil {
		return nil
	}
	out := make([]*models.Relationship, 0, len(agents))
	for _, agent := range agents {
		if agent == nil {
			continue
		}
		out = append(out, &models.Relationship{
			Key:           verbKey(account.Key, models.AccountAgentRelationshipClass, agent.Key),
			Type:          relType,
			Class:         models.AccountAgentRelationshipClass,
			DisplayName:   models.AccountAgentRelationshipClass,
			FromEntityKey: account.Key,
			ToEntityKey:   agent.Key,
		})
	}
	return out
}

// AgentFindingMappedRelationship links an agent to a finding embedded as the
// mapped target. The finding pointer is shared, so targets appended to it
// later are visible through every relationship built from it.
func AgentFindingMappedRelationship(agent *models.AgentEntity, finding *models.Finding, affectedPackage string, suppressed bool) *models.Relationship {
	key := verbKey(agent.Key, models.AgentFindingRelationshipClass, finding.Key)
	if affectedPackage != "" {
		key += "|" + affectedPackage
	}
	return &models.Relationship{
		Key:           key,
		Type:          models.AgentFindingRelationshipType,
		Class:         models.AgentFindingRelationshipClass,
		DisplayName:   models.AgentFindingRelationshipClass,
		FromEntityKey: agent.Key,
		Package:       affectedPackage,
		Suppressed:    suppressed,
		Mapping: &models.RelationshipMapping{
			RelationshipDirection: models.DirectionForward,
			SourceEntityKey:       agent.Key,
			TargetFilterKeys:      [][]string{{"_type", "_key"}},
			TargetEntity:          finding,
		},
	}
}
