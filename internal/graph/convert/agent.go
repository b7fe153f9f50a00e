package convert

import (
	"sort"
	"strings"

	"threatsync/internal/logger"
	"threatsync/pkg/models"
)

// AgentEntities converts cached agent records into agent nodes keyed by
// agent id. Records without an id are skipped.
func AgentEntities(agents []*models.Agent) []*models.AgentEntity {
	out := make([]*models.AgentEntity, 0, len(agents))
	for _, agent := range agents {
		if agent == nil {
			continue
		}
		id := strings.TrimSpace(agent.ID)
		if id == "" {
			logger.Warnf("Skipping agent without id (hostname=%s)", agent.Hostname)
			continue
		}
		out = append(out, agentEntity(id, agent))
	}
	return out
}

func agentEntity(id string, agent *models.Agent) *models.AgentEntity {
	display := agent.Hostname
	if display == "" {
		display = firstNonEmpty(agent.Name, agent.InstanceID, id)
	}

	status := strings.ToLower(strings.TrimSpace(agent.Status))
	e := &models.AgentEntity{
		Key:                id,
		Type:               models.AgentEntityType,
		Class:              models.AgentEntityClass,
		DisplayName:        display,
		ID:                 id,
		Hostname:           agent.Hostname,
		InstanceID:         strings.TrimSpace(agent.InstanceID),
		Status:             status,
		Online:             status == "online",
		Name:               agent.Name,
		Description:        agent.Description,
		Version:            agent.Version,
		AgentType:          agent.AgentType,
		OSVersion:          agent.OSVersion,
		Kernel:             agent.Kernel,
		PrivateIPAddresses: copyStrings(agent.IPAddresses.Private),
		PublicIPAddresses:  copyStrings(agent.IPAddresses.Public),
		Tags:               flattenTags(agent.Tags),
	}
	if !agent.CreatedAt.IsZero() {
		e.CreatedOn = agent.CreatedAt.UnixMilli()
	}
	if !agent.LastReportedAt.IsZero() {
		e.LastReportedOn = agent.LastReportedAt.UnixMilli()
	}
	return e
}

// flattenTags renders tags as sorted key=value strings so ordering in the
// provider payload does not register as a change.
func flattenTags(tags []models.AgentTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Key == "" {
			continue
		}
		out = append(out, tag.Key+"="+tag.Value)
	}
	sort.Strings(out)
	return out
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
