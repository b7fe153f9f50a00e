package convert

import (
	"fmt"
	"strings"
)

func accountKey(orgID string) string {
	if orgID == "" {
		return ""
	}
	return fmt.Sprintf("threatstack:account:%s", strings.ToLower(strings.TrimSpace(orgID)))
}

func findingKey(cveNumber string) string {
	return strings.ToLower(strings.TrimSpace(cveNumber))
}

func verbKey(fromKey, verb, toKey string) string {
	return fmt.Sprintf("%s|%s|%s", fromKey, strings.ToLower(verb), toKey)
}
