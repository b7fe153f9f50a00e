package convert

import (
	"strings"

	"threatsync/pkg/models"
)

const nvdDetailURL = "https://nvd.nist.gov/vuln/detail/"

// FindingDetails is the per-record metadata attached to a CVE finding.
type FindingDetails struct {
	Package       string
	Severity      string
	Vector        string
	SystemPackage string
}

// CVE returns a new finding for cveNumber. Every call yields an independent
// object with an empty target list.
func CVE(cveNumber string, details FindingDetails) *models.Finding {
	number := strings.ToUpper(strings.TrimSpace(cveNumber))
	f := &models.Finding{
		Key:           findingKey(number),
		Type:          models.FindingEntityType,
		Class:         models.FindingEntityClass,
		Name:          number,
		DisplayName:   number,
		CVENumber:     number,
		Package:       details.Package,
		Severity:      strings.ToLower(details.Severity),
		Vector:        details.Vector,
		SystemPackage: details.SystemPackage,
		Targets:       []string{},
	}
	if strings.HasPrefix(number, "CVE-") {
		f.WebLink = nvdDetailURL + number
	}
	return f
}

// TargetOf returns the identifier an agent contributes to finding targets:
// its instance id when present, else its hostname.
func TargetOf(agent *models.AgentEntity) string {
	if agent.InstanceID != "" {
		return agent.InstanceID
	}
	return agent.Hostname
}
