package threatstack

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"threatsync/pkg/models"
)

// ParseAgent converts a cached agent payload into a normalized Agent.
// Both the camelCase API shape and snake_case exports are accepted.
func ParseAgent(data []byte) (*models.Agent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	agent := &models.Agent{
		ID:          getString(raw, "id", "agentId", "agent_id"),
		InstanceID:  getString(raw, "instanceId", "instance_id", "ec2Metadata.instanceId"),
		Status:      strings.ToLower(getString(raw, "status")),
		Hostname:    getString(raw, "hostname", "host.name"),
		Name:        getString(raw, "name"),
		Description: getString(raw, "description"),
		Version:     getString(raw, "version", "agentVersion"),
		AgentType:   getString(raw, "agentType", "agent_type"),
		OSVersion:   getString(raw, "osVersion", "os_version"),
		Kernel:      getString(raw, "kernel"),
		IPAddresses: models.IPAddresses{
			Private:   getStrings(raw, "ipAddresses.private", "ip_addresses.private"),
			Public:    getStrings(raw, "ipAddresses.public", "ip_addresses.public"),
			LinkLocal: getStrings(raw, "ipAddresses.link_local", "ipAddresses.linkLocal"),
		},
		Tags: getTags(raw, "tags"),
	}
	if t, ok := parseTime(getString(raw, "createdAt", "created_at")); ok {
		agent.CreatedAt = t
	}
	if t, ok := parseTime(getString(raw, "lastReportedAt", "last_reported_at")); ok {
		agent.LastReportedAt = t
	}

	if agent.ID == "" {
		return nil, fmt.Errorf("agent payload has no id")
	}
	return agent, nil
}

// ParseVulnerability converts a cached vulnerability payload.
func ParseVulnerability(data []byte) (*models.VulnerabilityData, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	vuln, ok := getPath(raw, "vulnerability")
	if !ok {
		// Flat records carry vulnerability fields at the top level.
		vuln = raw
	}
	vm, _ := vuln.(map[string]interface{})

	out := &models.VulnerabilityData{
		Vulnerability: models.Vulnerability{
			CVENumber:       getString(vm, "cveNumber", "cve_number", "cve"),
			ReportedPackage: getString(vm, "reportedPackage", "reported_package"),
			SystemPackage:   getString(vm, "systemPackage", "system_package"),
			VectorType:      getString(vm, "vectorType", "vector_type"),
			Severity:        strings.ToLower(getString(vm, "severity")),
			IsSuppressed:    getBool(vm, "isSuppressed", "is_suppressed", "suppressed"),
		},
	}
	if out.Vulnerability.CVENumber == "" {
		return nil, fmt.Errorf("vulnerability payload has no cve number")
	}

	if v, ok := getPath(raw, "vulnerableServers"); ok {
		if list, ok := v.([]interface{}); ok {
			out.VulnerableServers = make([]models.VulnerableServer, 0, len(list))
			for _, item := range list {
				m, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				out.VulnerableServers = append(out.VulnerableServers, models.VulnerableServer{
					AgentID:  getString(m, "agentId", "agent_id"),
					Hostname: getString(m, "hostname"),
				})
			}
		}
	}
	return out, nil
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case string:
				if val == "" {
					continue
				}
				return val
			case fmt.Stringer:
				return val.String()
			case int:
				return fmt.Sprintf("%d", val)
			case int64:
				return fmt.Sprintf("%d", val)
			case float64:
				if val == float64(int64(val)) {
					return fmt.Sprintf("%d", int64(val))
				}
				return fmt.Sprintf("%f", val)
			}
		}
	}
	return ""
}

func getBool(root map[string]interface{}, paths ...string) bool {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case bool:
				return val
			case string:
				return strings.EqualFold(val, "true")
			}
		}
	}
	return false
}

func getStrings(root map[string]interface{}, paths ...string) []string {
	for _, path := range paths {
		v, ok := getPath(root, path)
		if !ok {
			continue
		}
		list, ok := v.([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func getTags(root map[string]interface{}, path string) []models.AgentTag {
	v, ok := getPath(root, path)
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []models.AgentTag
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		key := getString(m, "key", "Key")
		if key == "" {
			continue
		}
		out = append(out, models.AgentTag{Key: key, Value: getString(m, "value", "Value")})
	}
	return out
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	if root == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok || v == nil {
			return nil, false
		}
		current = v
	}
	return current, true
}
