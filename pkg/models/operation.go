package models

// OperationKind is the action a graph operation performs.
type OperationKind string

const (
	OperationCreate OperationKind = "CREATE"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// Operation categories.
const (
	CategoryEntity       = "entity"
	CategoryRelationship = "relationship"
)

// Operation is one create/update/delete against the graph store. Data holds
// the new record for creates and updates and the old record for deletes.
type Operation struct {
	Kind     OperationKind `json:"op"`
	Category string        `json:"category"`
	Type     string        `json:"type"`
	Key      string        `json:"key"`
	Data     interface{}   `json:"data,omitempty"`
}

// OperationsSummary counts operations by kind.
type OperationsSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Add accumulates other into s.
func (s *OperationsSummary) Add(other OperationsSummary) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Deleted += other.Deleted
}

// Total returns the number of operations counted.
func (s OperationsSummary) Total() int {
	return s.Created + s.Updated + s.Deleted
}
