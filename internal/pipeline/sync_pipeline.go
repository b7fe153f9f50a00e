package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"threatsync/internal/cache"
	"threatsync/internal/graph/convert"
	"threatsync/internal/graph/diff"
	"threatsync/internal/logger"
	"threatsync/internal/metrics"
	"threatsync/internal/rules"
	"threatsync/pkg/models"
)

// Step names.
const (
	StepAccount                = "account"
	StepAgents                 = "agents"
	StepAccountAgents          = "account_agents"
	StepVulnerabilityRelations = "vulnerabilities"
)

// Config wires a SyncPipeline. Audit, Rules and Metrics are optional.
type Config struct {
	Organization models.Organization
	Cache        cache.Reader
	Graph        GraphReader
	Publisher    OperationWriter
	Audit        OperationWriter
	Rules        rules.Engine
	Metrics      *metrics.Recorder
}

// StepResult is the outcome of one synchronization step.
type StepResult struct {
	Name     string                   `json:"name"`
	Category string                   `json:"category"`
	Type     string                   `json:"type"`
	Summary  models.OperationsSummary `json:"summary"`
}

// Result aggregates a whole run.
type Result struct {
	RunID   string                   `json:"runId"`
	Summary models.OperationsSummary `json:"summary"`
	Steps   []StepResult             `json:"steps"`
	Skipped []string                 `json:"skipped,omitempty"`
}

func (r *Result) add(step StepResult) {
	r.Steps = append(r.Steps, step)
	r.Summary.Add(step.Summary)
}

// SyncPipeline reconciles cached provider data into the graph.
type SyncPipeline struct {
	org       models.Organization
	cache     cache.Reader
	graph     GraphReader
	publisher OperationWriter
	audit     OperationWriter
	engine    rules.Engine
	metrics   *metrics.Recorder
	newRunID  func() string
}

// NewSyncPipeline creates a pipeline from cfg.
func NewSyncPipeline(cfg Config) *SyncPipeline {
	return &SyncPipeline{
		org:       cfg.Organization,
		cache:     cfg.Cache,
		graph:     cfg.Graph,
		publisher: cfg.Publisher,
		audit:     cfg.Audit,
		engine:    cfg.Rules,
		metrics:   cfg.Metrics,
		newRunID:  uuid.NewString,
	}
}

// Run performs one synchronization. It fails with ErrProviderFetch, before
// touching the graph, when any provider data-set is incomplete. Publish
// errors abort the run; steps already published are not rolled back.
func (p *SyncPipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx)
	p.metrics.ObserveRun(start, err)
	return res, err
}

func (p *SyncPipeline) run(ctx context.Context) (*Result, error) {
	ok, err := p.cache.FetchSucceeded(ctx, cache.OnlineAgents, cache.OfflineAgents, cache.Vulnerabilities)
	if err != nil {
		return nil, fmt.Errorf("check provider fetch status: %w", err)
	}
	if !ok {
		return nil, ErrProviderFetch
	}

	result := &Result{RunID: p.newRunID()}
	logger.Infof("Synchronization started (run=%s, org=%s)", result.RunID, p.org.OrgID)

	account := convert.AccountEntity(p.org)
	step, err := syncRecords(ctx, p, result.RunID, StepAccount, models.CategoryEntity, models.AccountEntityType,
		p.graph.FindEntitiesByType, []*models.AccountEntity{account})
	if err != nil {
		return nil, err
	}
	result.add(step)

	rawAgents, err := p.loadAgents(ctx)
	if err != nil {
		return nil, err
	}
	agents := convert.AgentEntities(rawAgents)

	step, err = syncRecords(ctx, p, result.RunID, StepAgents, models.CategoryEntity, models.AgentEntityType,
		p.graph.FindEntitiesByType, agents)
	if err != nil {
		return nil, err
	}
	result.add(step)

	step, err = syncRecords(ctx, p, result.RunID, StepAccountAgents, models.CategoryRelationship, models.AccountAgentRelationshipType,
		p.graph.FindRelationshipsByType, convert.AccountRelationships(account, agents, models.AccountAgentRelationshipType))
	if err != nil {
		return nil, err
	}
	result.add(step)

	vulnIDs, err := p.cache.IDs(ctx, cache.Vulnerabilities)
	if err != nil {
		return nil, fmt.Errorf("read vulnerability ids: %w", err)
	}
	if len(vulnIDs) == 0 {
		logger.Infof("Skipping synchronization of vulnerabilities, received empty collection")
		result.Skipped = append(result.Skipped, StepVulnerabilityRelations)
	} else {
		rels, stats, err := BuildVulnerabilityRelationships(ctx, vulnIDs, agents, p.cache.VulnerabilityData, p.engine)
		if err != nil {
			return nil, err
		}
		p.metrics.ObserveFanout(stats.Vulnerabilities, stats.SkippedTargets)
		logger.Debugf("Vulnerability join: vulnerabilities=%d missing=%d relationships=%d skipped_targets=%d",
			stats.Vulnerabilities, stats.Missing, stats.Relationships, stats.SkippedTargets)

		step, err = syncRecords(ctx, p, result.RunID, StepVulnerabilityRelations, models.CategoryRelationship, models.AgentFindingRelationshipType,
			p.graph.FindRelationshipsByType, rels)
		if err != nil {
			return nil, err
		}
		result.add(step)
	}

	logger.WithFields(logger.Fields{
		"run":     result.RunID,
		"created": result.Summary.Created,
		"updated": result.Summary.Updated,
		"deleted": result.Summary.Deleted,
		"total":   result.Summary.Total(),
	}).Info("Synchronization complete")
	return result, nil
}

// loadAgents reads the online and offline data-sets concurrently and returns
// online agents followed by offline agents.
func (p *SyncPipeline) loadAgents(ctx context.Context) ([]*models.Agent, error) {
	categories := []cache.Category{cache.OnlineAgents, cache.OfflineAgents}
	loaded := make([][]*models.Agent, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			ids, err := p.cache.IDs(gctx, category)
			if err != nil {
				return fmt.Errorf("read %s ids: %w", category, err)
			}
			entries, err := p.cache.Entries(gctx, category, ids)
			if err != nil {
				return fmt.Errorf("read %s entries: %w", category, err)
			}
			loaded[i] = cache.PresentAgents(entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.Agent, 0, len(loaded[0])+len(loaded[1]))
	for _, agents := range loaded {
		out = append(out, agents...)
	}
	return out, nil
}

// Close releases the publisher and audit writer.
func (p *SyncPipeline) Close() error {
	if p.audit != nil {
		if err := p.audit.Close(); err != nil {
			logger.Errorf("Failed to close audit writer: %v", err)
		}
	}
	if p.publisher != nil {
		return p.publisher.Close()
	}
	return nil
}

type finder func(ctx context.Context, graphType string) ([]json.RawMessage, error)

// syncRecords diffs next against the stored records of graphType and writes
// the resulting operations.
func syncRecords[T any, PT interface {
	*T
	diff.Record
}](ctx context.Context, p *SyncPipeline, runID, step, category, graphType string, find finder, next []PT) (StepResult, error) {
	raws, err := find(ctx, graphType)
	if err != nil {
		return StepResult{}, fmt.Errorf("find stored %s records: %w", graphType, err)
	}
	old, err := decodeRecords[T, PT](raws)
	if err != nil {
		return StepResult{}, fmt.Errorf("load stored %s records: %w", graphType, err)
	}

	set := diff.Compute(old, next)
	if set.Duplicates > 0 {
		logger.Warnf("Dropped %d %s records with duplicate keys", set.Duplicates, graphType)
	}

	res := StepResult{Name: step, Category: category, Type: graphType, Summary: set.Summary()}
	if !set.Empty() {
		ops := set.Operations(category)
		if err := p.publisher.WriteOperations(ctx, runID, ops); err != nil {
			return StepResult{}, fmt.Errorf("publish %s operations: %w", step, err)
		}
		if p.audit != nil {
			if err := p.audit.WriteOperations(ctx, runID, ops); err != nil {
				logger.Errorf("Failed to write %s operations to audit log: %v", step, err)
			}
		}
	}
	p.metrics.ObserveOperations(category, graphType, res.Summary)

	logger.WithFields(logger.Fields{
		"run":     runID,
		"step":    step,
		"type":    graphType,
		"old":     len(old),
		"new":     len(next),
		"created": res.Summary.Created,
		"updated": res.Summary.Updated,
		"deleted": res.Summary.Deleted,
	}).Info("Step synchronized")
	return res, nil
}
