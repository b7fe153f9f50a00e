package rules

import (
	"context"

	"threatsync/pkg/models"
)

// Engine tags vulnerability records with matching rule annotations.
type Engine interface {
	Apply(ctx context.Context, vuln *models.Vulnerability) []models.FindingTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(ctx context.Context, vuln *models.Vulnerability) []models.FindingTag {
	return nil
}
