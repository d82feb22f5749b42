// Package optimizer suggests security, cost, performance and reliability
// improvements for a compiled Redash template. Suggestions never fail a build;
// they describe trade-offs the default sizing makes.
package optimizer

import (
	"fmt"
	"sort"

	redash "github.com/lex00/redash-aws-go"
)

// Categories in report order.
const (
	CategorySecurity    = "security"
	CategoryCost        = "cost"
	CategoryPerformance = "performance"
	CategoryReliability = "reliability"
)

// Categories lists every category in report order.
var Categories = []string{CategorySecurity, CategoryCost, CategoryPerformance, CategoryReliability}

// Options configures the optimizer.
type Options struct {
	// Category filters suggestions: "all" or one of Categories. Empty means all.
	Category string
}

// Result contains optimization suggestions.
type Result struct {
	Suggestions []redash.OptimizeSuggestion
	Summary     redash.OptimizeSummary
}

// Rule inspects one resource type. Check returns nil when the resource
// already follows the suggestion.
type Rule struct {
	ID       string
	Category string
	Severity string
	Type     string
	Title    string
	Check    func(t *redash.Template, id string, res redash.ResourceDef) *redash.OptimizeSuggestion
}

// ValidCategory reports whether c is "all" or a known category.
func ValidCategory(c string) bool {
	if c == "" || c == "all" {
		return true
	}
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Optimize applies every rule to the matching resources of t.
func Optimize(t *redash.Template, opts Options) (*Result, error) {
	if !ValidCategory(opts.Category) {
		return nil, fmt.Errorf("invalid category: %s", opts.Category)
	}

	ids := make([]string, 0, len(t.Resources))
	for id := range t.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &Result{}
	for _, rule := range Rules() {
		if opts.Category != "" && opts.Category != "all" && rule.Category != opts.Category {
			continue
		}
		for _, id := range ids {
			res := t.Resources[id]
			if res.Type != rule.Type {
				continue
			}
			if s := rule.Check(t, id, res); s != nil {
				s.Rule = rule.ID
				s.Resource = id
				s.Category = rule.Category
				s.Severity = rule.Severity
				if s.Title == "" {
					s.Title = rule.Title
				}
				result.Suggestions = append(result.Suggestions, *s)
			}
		}
	}

	result.Summary = calculateSummary(result.Suggestions)
	return result, nil
}

// calculateSummary tallies suggestions by category.
func calculateSummary(suggestions []redash.OptimizeSuggestion) redash.OptimizeSummary {
	summary := redash.OptimizeSummary{}
	for _, s := range suggestions {
		switch s.Category {
		case CategorySecurity:
			summary.Security++
		case CategoryCost:
			summary.Cost++
		case CategoryPerformance:
			summary.Performance++
		case CategoryReliability:
			summary.Reliability++
		}
		summary.Total++
	}
	return summary
}

func countType(t *redash.Template, typ string) int {
	n := 0
	for _, res := range t.Resources {
		if res.Type == typ {
			n++
		}
	}
	return n
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
