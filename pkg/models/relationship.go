package models

// Graph relationship types and classes.
const (
	AccountAgentRelationshipType  = "threatstack_account_has_agent"
	AccountAgentRelationshipClass = "HAS"
	AgentFindingRelationshipType  = "threatstack_agent_identified_cve"
	AgentFindingRelationshipClass = "IDENTIFIED"
)

// Relationship directions used by mapped relationships.
const (
	DirectionForward = "FORWARD"
	DirectionReverse = "REVERSE"
)

// Relationship is a directed, typed edge. Mapped relationships carry their
// target in Mapping instead of ToEntityKey.
type Relationship struct {
	Key           string               `json:"_key"`
	Type          string               `json:"_type"`
	Class         string               `json:"_class"`
	DisplayName   string               `json:"displayName,omitempty"`
	FromEntityKey string               `json:"_fromEntityKey,omitempty"`
	ToEntityKey   string               `json:"_toEntityKey,omitempty"`
	Package       string               `json:"package,omitempty"`
	Suppressed    bool                 `json:"suppressed,omitempty"`
	Mapping       *RelationshipMapping `json:"_mapping,omitempty"`
}

// RelationshipMapping describes a denormalized relationship target.
type RelationshipMapping struct {
	RelationshipDirection string     `json:"relationshipDirection"`
	SourceEntityKey       string     `json:"sourceEntityKey"`
	TargetFilterKeys      [][]string `json:"targetFilterKeys"`
	TargetEntity          *Finding   `json:"targetEntity"`
}

// GraphKey returns the explicit key, or one derived from the endpoints and
// type when no key was assigned.
func (r *Relationship) GraphKey() string {
	if r.Key != "" {
		return r.Key
	}
	to := r.ToEntityKey
	if to == "" && r.Mapping != nil && r.Mapping.TargetEntity != nil {
		to = r.Mapping.TargetEntity.Key
	}
	return r.FromEntityKey + "|" + r.Type + "|" + to
}

func (r *Relationship) GraphType() string { return r.Type }
