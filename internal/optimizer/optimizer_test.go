package optimizer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/stack"
)

func composed(t *testing.T) *redash.Template {
	t.Helper()
	r, err := stack.New(context.Background(), config.Default(), nil, zerolog.Nop())
	require.NoError(t, err)
	tmpl, err := r.Template()
	require.NoError(t, err)
	return tmpl
}

func rulesOf(result *Result) []string {
	var ids []string
	for _, s := range result.Suggestions {
		ids = append(ids, s.Rule)
	}
	return ids
}

func TestOptimize_ComposedStack(t *testing.T) {
	result, err := Optimize(composed(t), Options{Category: "all"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"OPT-CACHE-001",
		"OPT-EC2-001",
		"OPT-ELB-001",
		"OPT-RDS-001",
		"OPT-RDS-002",
		"OPT-RDS-003",
	}, rulesOf(result))

	assert.Equal(t, redash.OptimizeSummary{Security: 1, Reliability: 5, Total: 6}, result.Summary)

	for _, s := range result.Suggestions {
		assert.NotEmpty(t, s.Resource)
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Suggestion)
	}
}

func TestOptimize_CategoryFilter(t *testing.T) {
	result, err := Optimize(composed(t), Options{Category: CategorySecurity})
	require.NoError(t, err)

	assert.Equal(t, []string{"OPT-ELB-001"}, rulesOf(result))
	assert.Equal(t, 1, result.Summary.Total)

	_, err = Optimize(composed(t), Options{Category: "speed"})
	assert.Error(t, err)
}

func TestOptimize_Resolved(t *testing.T) {
	tmpl := &redash.Template{Resources: map[string]redash.ResourceDef{
		"Db": {Type: "AWS::RDS::DBInstance", Properties: map[string]any{
			"MultiAZ":               true,
			"BackupRetentionPeriod": float64(14),
			"DeletionProtection":    true,
		}},
		"Cache":    {Type: "AWS::ElastiCache::CacheCluster", Properties: map[string]any{"NumCacheNodes": int64(2)}},
		"NatA":     {Type: "AWS::EC2::NatGateway"},
		"NatB":     {Type: "AWS::EC2::NatGateway"},
		"Listener": {Type: "AWS::ElasticLoadBalancingV2::Listener", Properties: map[string]any{"Protocol": "HTTPS"}},
		"Logs":     {Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": int64(30)}},
		"Cluster": {Type: "AWS::ECS::Cluster", Properties: map[string]any{
			"ClusterSettings": []any{map[string]any{"Name": "containerInsights", "Value": "enabled"}},
		}},
	}}

	result, err := Optimize(tmpl, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
	assert.Zero(t, result.Summary.Total)
}

func TestOptimize_MissingSettings(t *testing.T) {
	tmpl := &redash.Template{Resources: map[string]redash.ResourceDef{
		"Logs":    {Type: "AWS::Logs::LogGroup"},
		"Cluster": {Type: "AWS::ECS::Cluster"},
	}}

	result, err := Optimize(tmpl, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"OPT-ECS-001", "OPT-LOGS-001"}, rulesOf(result))
	assert.Equal(t, redash.OptimizeSummary{Cost: 1, Performance: 1, Total: 2}, result.Summary)
	assert.Equal(t, "Cluster", result.Suggestions[0].Resource)
	assert.Equal(t, "low", result.Suggestions[1].Severity)
}

func TestRules_UniqueSortedIDs(t *testing.T) {
	rules := Rules()
	for i := 1; i < len(rules); i++ {
		assert.Less(t, rules[i-1].ID, rules[i].ID)
	}
	for _, r := range rules {
		assert.Contains(t, Categories, r.Category, r.ID)
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range []string{"", "all", "security", "cost", "performance", "reliability"} {
		assert.True(t, ValidCategory(c), c)
	}
	assert.False(t, ValidCategory("speed"))
}
