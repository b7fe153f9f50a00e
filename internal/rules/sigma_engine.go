package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"threatsync/pkg/models"
)

var techniqueTagRegex = regexp.MustCompile(`^attack\.t\d{4}(?:\.\d{3})?$`)

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

type findingRule struct {
	eval *sigmaevaluator.RuleEvaluator
	tag  models.FindingTag
}

// SigmaEngine evaluates Sigma rules against vulnerability records. Rules
// match on the fields cveNumber, reportedPackage, systemPackage, vectorType,
// severity and isSuppressed.
type SigmaEngine struct {
	rules []findingRule
}

// NewSigmaEngine loads Sigma rules from a file or directory.
// Rules scoped to another log source, or using aggregations, timeframes or
// keyword searches, are skipped and counted in stats.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalFiles = len(files)

	engine := &SigmaEngine{}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		rule, err := sigma.ParseRule(raw)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		if !scopedToVulnerabilities(rule.Logsource) {
			stats.SkippedDatasource++
			continue
		}
		if !singleRecordRule(rule) {
			stats.SkippedComplex++
			continue
		}
		engine.rules = append(engine.rules, findingRule{
			eval: sigmaevaluator.ForRule(rule),
			tag:  tagFromRule(rule),
		})
		stats.Loaded++
	}

	return engine, stats, nil
}

// Len returns the number of compiled rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Apply returns the tags of every rule matching vuln.
func (e *SigmaEngine) Apply(ctx context.Context, vuln *models.Vulnerability) []models.FindingTag {
	if e == nil || vuln == nil || len(e.rules) == 0 {
		return nil
	}

	record := map[string]interface{}{
		"cveNumber":       vuln.CVENumber,
		"reportedPackage": vuln.ReportedPackage,
		"systemPackage":   vuln.SystemPackage,
		"vectorType":      vuln.VectorType,
		"severity":        vuln.Severity,
		"isSuppressed":    strconv.FormatBool(vuln.IsSuppressed),
	}

	var out []models.FindingTag
	for _, rule := range e.rules {
		res, err := rule.eval.Matches(ctx, record)
		if err != nil || !res.Match {
			continue
		}
		out = append(out, rule.tag)
	}
	return out
}

func ruleFiles(path string) ([]string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule path: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat rule path: %w", err)
	}
	if !info.IsDir() {
		if !isYAMLFile(resolved) {
			return nil, fmt.Errorf("rule file must end with .yml or .yaml: %s", resolved)
		}
		return []string{resolved}, nil
	}

	var files []string
	err = filepath.WalkDir(resolved, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() && isYAMLFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rule directory: %w", err)
	}
	return files, nil
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func scopedToVulnerabilities(src sigma.Logsource) bool {
	product := strings.ToLower(strings.TrimSpace(src.Product))
	category := strings.ToLower(strings.TrimSpace(src.Category))
	return (product == "" || product == "threatstack") &&
		(category == "" || category == "vulnerability")
}

func singleRecordRule(rule sigma.Rule) bool {
	if rule.Detection.Timeframe > 0 {
		return false
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil || !simpleExpr(cond.Search) {
			return false
		}
	}
	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 || len(search.EventMatchers) == 0 {
			return false
		}
	}
	return true
}

func simpleExpr(expr sigma.SearchExpr) bool {
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.And:
		for _, child := range e {
			if !simpleExpr(child) {
				return false
			}
		}
		return true
	case sigma.Or:
		for _, child := range e {
			if !simpleExpr(child) {
				return false
			}
		}
		return true
	case sigma.Not:
		return simpleExpr(e.Expr)
	default:
		return false
	}
}

func tagFromRule(rule sigma.Rule) models.FindingTag {
	tag := models.FindingTag{
		ID:       strings.TrimSpace(rule.ID),
		Name:     strings.TrimSpace(rule.Title),
		Severity: strings.ToLower(strings.TrimSpace(rule.Level)),
	}
	if tag.ID == "" {
		tag.ID = tag.Name
	}
	if tag.Severity == "" {
		tag.Severity = "medium"
	}
	for _, raw := range rule.Tags {
		t := strings.ToLower(strings.TrimSpace(raw))
		if !strings.HasPrefix(t, "attack.") {
			continue
		}
		suffix := strings.TrimPrefix(t, "attack.")
		switch {
		case tag.Technique == "" && techniqueTagRegex.MatchString(t):
			tag.Technique = strings.ToUpper(strings.ReplaceAll(suffix, ".", "/"))
		case tag.Tactic == "" && !strings.HasPrefix(suffix, "t"):
			tag.Tactic = strings.ReplaceAll(suffix, "_", "-")
		}
	}
	return tag
}
