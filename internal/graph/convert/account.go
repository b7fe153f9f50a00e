package convert

import "threatsync/pkg/models"

// AccountEntity maps the configured organization to its account node.
func AccountEntity(org models.Organization) *models.AccountEntity {
	return &models.AccountEntity{
		Key:            accountKey(org.OrgID),
		Type:           models.AccountEntityType,
		Class:          models.AccountEntityClass,
		DisplayName:    org.OrgName,
		Name:           org.OrgName,
		OrganizationID: org.OrgID,
	}
}
