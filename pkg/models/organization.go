package models

// Organization identifies the provider account an integration instance syncs.
type Organization struct {
	OrgName string `json:"orgName"`
	OrgID   string `json:"orgId"`
}
