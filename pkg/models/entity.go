package models

// Graph entity types and classes.
const (
	AccountEntityType  = "threatstack_account"
	AccountEntityClass = "Account"
	AgentEntityType    = "threatstack_agent"
	AgentEntityClass   = "HostAgent"
	FindingEntityType  = "cve"
	FindingEntityClass = "Vulnerability"
)

// AccountEntity is the single account node of an integration instance.
type AccountEntity struct {
	Key            string `json:"_key"`
	Type           string `json:"_type"`
	Class          string `json:"_class"`
	DisplayName    string `json:"displayName"`
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId"`
}

func (e *AccountEntity) GraphKey() string  { return e.Key }
func (e *AccountEntity) GraphType() string { return e.Type }

// AgentEntity is a host agent node.
type AgentEntity struct {
	Key                string   `json:"_key"`
	Type               string   `json:"_type"`
	Class              string   `json:"_class"`
	DisplayName        string   `json:"displayName"`
	ID                 string   `json:"id"`
	Hostname           string   `json:"hostname"`
	InstanceID         string   `json:"instanceId,omitempty"`
	Status             string   `json:"status"`
	Online             bool     `json:"online"`
	Name               string   `json:"name,omitempty"`
	Description        string   `json:"description,omitempty"`
	Version            string   `json:"version,omitempty"`
	AgentType          string   `json:"agentType,omitempty"`
	OSVersion          string   `json:"osVersion,omitempty"`
	Kernel             string   `json:"kernel,omitempty"`
	PrivateIPAddresses []string `json:"privateIpAddresses,omitempty"`
	PublicIPAddresses  []string `json:"publicIpAddresses,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	CreatedOn          int64    `json:"createdOn,omitempty"`
	LastReportedOn     int64    `json:"lastReportedOn,omitempty"`
}

func (e *AgentEntity) GraphKey() string  { return e.Key }
func (e *AgentEntity) GraphType() string { return e.Type }

// Finding is a normalized CVE record embedded in mapped relationships.
type Finding struct {
	Key           string       `json:"_key"`
	Type          string       `json:"_type"`
	Class         string       `json:"_class"`
	Name          string       `json:"name"`
	DisplayName   string       `json:"displayName"`
	CVENumber     string       `json:"cveNumber"`
	Package       string       `json:"package,omitempty"`
	Severity      string       `json:"severity,omitempty"`
	Vector        string       `json:"vector,omitempty"`
	SystemPackage string       `json:"systemPackage,omitempty"`
	WebLink       string       `json:"webLink,omitempty"`
	Targets       []string     `json:"targets"`
	Tags          []FindingTag `json:"tags,omitempty"`
}

// FindingTag is a rule match annotation on a finding.
type FindingTag struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
}
