package models

import "time"

// Agent is a monitored host agent as cached from the provider API.
type Agent struct {
	ID             string      `json:"id"`
	InstanceID     string      `json:"instanceId,omitempty"`
	Status         string      `json:"status"`
	Hostname       string      `json:"hostname"`
	Name           string      `json:"name,omitempty"`
	Description    string      `json:"description,omitempty"`
	Version        string      `json:"version,omitempty"`
	AgentType      string      `json:"agentType,omitempty"`
	OSVersion      string      `json:"osVersion,omitempty"`
	Kernel         string      `json:"kernel,omitempty"`
	IPAddresses    IPAddresses `json:"ipAddresses,omitempty"`
	Tags           []AgentTag  `json:"tags,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty"`
	LastReportedAt time.Time   `json:"lastReportedAt,omitempty"`
}

// IPAddresses groups the addresses an agent reports.
type IPAddresses struct {
	Private   []string `json:"private,omitempty"`
	Public    []string `json:"public,omitempty"`
	LinkLocal []string `json:"link_local,omitempty"`
}

// AgentTag is a provider-side key/value label.
type AgentTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Online reports whether the agent was last seen online.
func (a *Agent) Online() bool {
	return a != nil && a.Status == "online"
}
