package models

// Vulnerability is a raw provider finding for one CVE and package.
type Vulnerability struct {
	CVENumber       string `json:"cveNumber"`
	ReportedPackage string `json:"reportedPackage,omitempty"`
	SystemPackage   string `json:"systemPackage,omitempty"`
	VectorType      string `json:"vectorType,omitempty"`
	Severity        string `json:"severity,omitempty"`
	IsSuppressed    bool   `json:"isSuppressed"`
}

// VulnerableServer references an agent affected by a vulnerability.
type VulnerableServer struct {
	AgentID  string `json:"agentId"`
	Hostname string `json:"hostname,omitempty"`
}

// VulnerabilityData is the cached record for one vulnerability id.
type VulnerabilityData struct {
	Vulnerability     Vulnerability      `json:"vulnerability"`
	VulnerableServers []VulnerableServer `json:"vulnerableServers"`
}
