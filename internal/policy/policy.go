// Package policy checks a compiled Redash template against the deployment's
// safety properties.
//
// Rules:
//
//	RDA001: Secrets are never passed as container environment variables
//	RDA002: Database and cache accept traffic only from the private tier
//	RDA003: Outputs never reference secrets
//	RDA004: One-off task definitions are not run by a service
//	RDA005: Worker queue sets are disjoint
//	RDA006: Autoscaling bounds and targets are consistent
//	RDA007: Physical names are unique per resource type
//	RDA008: The database is not publicly accessible
package policy

import (
	"fmt"
	"sort"
	"strings"

	corelint "github.com/lex00/wetwire-core-go/lint"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/template"
)

// Severity constants.
const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Issue is a rule violation on one resource or output.
type Issue struct {
	corelint.Issue
	Resource string
}

// Options carries deployment facts the template alone does not record.
type Options struct {
	// PrivateCIDRs are the CIDR blocks of the private tier.
	PrivateCIDRs []string

	// OneOffTasks are logical IDs of task definitions run by hand.
	OneOffTasks []string

	// Rules to run. Empty runs all rules.
	EnabledRules []string
}

// Rule checks one property of a template.
type Rule interface {
	ID() string
	Description() string
	Check(t *redash.Template, opts Options) []Issue
}

// Result is the outcome of Check.
type Result struct {
	Success bool
	Issues  []Issue
}

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		SecretInEnvironment{},
		DataTierIngress{},
		OutputReferencesSecret{},
		OneOffTaskInService{},
		OverlappingQueues{},
		AutoscalingBounds{},
		DuplicatePhysicalName{},
		PublicDatabase{},
	}
}

// Check runs the enabled rules over t. Success is false only when an
// error-severity issue is found.
func Check(t *redash.Template, opts Options) Result {
	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	result := Result{Success: true}
	for _, rule := range AllRules() {
		if len(enabled) > 0 && !enabled[rule.ID()] {
			continue
		}
		for _, issue := range rule.Check(t, opts) {
			if issue.Severity == SeverityError {
				result.Success = false
			}
			result.Issues = append(result.Issues, issue)
		}
	}
	return result
}

// LintIssues converts issues to the CLI result shape.
func LintIssues(issues []Issue) []redash.LintIssue {
	out := make([]redash.LintIssue, len(issues))
	for i, issue := range issues {
		out[i] = redash.LintIssue{
			Resource: issue.Resource,
			Severity: issue.Severity.String(),
			Message:  issue.Message,
			Rule:     issue.Rule,
		}
	}
	return out
}

func newIssue(rule Rule, severity corelint.Severity, resource, format string, args ...any) Issue {
	return Issue{
		Issue: corelint.Issue{
			Rule:     rule.ID(),
			Message:  fmt.Sprintf(format, args...),
			Severity: severity,
		},
		Resource: resource,
	}
}

// sortedIDs returns the logical IDs of resources of the given types in order.
func sortedIDs(t *redash.Template, types ...string) []string {
	want := make(map[string]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}
	var ids []string
	for id, res := range t.Resources {
		if len(want) == 0 || want[res.Type] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func isSecret(t *redash.Template, id string) bool {
	res, ok := t.Resources[id]
	return ok && res.Type == "AWS::SecretsManager::Secret"
}

// containsDynamicSecret reports whether v embeds a Secrets Manager dynamic reference.
func containsDynamicSecret(v any) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(val, "{{resolve:secretsmanager:")
	case []any:
		for _, item := range val {
			if containsDynamicSecret(item) {
				return true
			}
		}
	case map[string]any:
		for _, item := range val {
			if containsDynamicSecret(item) {
				return true
			}
		}
	}
	return false
}

func containerDefinitions(res redash.ResourceDef) []map[string]any {
	list, _ := res.Properties["ContainerDefinitions"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		if m, ok := c.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func environment(container map[string]any) map[string]any {
	env := make(map[string]any)
	list, _ := container["Environment"].([]any)
	for _, item := range list {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := pair["Name"].(string); ok {
			env[name] = pair["Value"]
		}
	}
	return env
}

func secretNames(container map[string]any) []string {
	var names []string
	list, _ := container["Secrets"].([]any)
	for _, item := range list {
		if s, ok := item.(map[string]any); ok {
			if name, ok := s["Name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// referencesOf returns the logical IDs v references.
func referencesOf(v any) []string {
	return template.References(v)
}

func refersTo(v any, id string) bool {
	for _, ref := range referencesOf(v) {
		if ref == id {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
