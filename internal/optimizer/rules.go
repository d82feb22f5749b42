package optimizer

import (
	redash "github.com/lex00/redash-aws-go"
)

// MinBackupRetentionDays is the retention below which OPT-RDS-002 suggests more.
const MinBackupRetentionDays = 7

// Rules returns every rule in ID order.
func Rules() []Rule {
	return []Rule{
		{
			ID:       "OPT-CACHE-001",
			Category: CategoryReliability,
			Severity: "medium",
			Type:     "AWS::ElastiCache::CacheCluster",
			Title:    "Consider a replicated Redis",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				if n, ok := toInt(res.Properties["NumCacheNodes"]); ok && n > 1 {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "A single Redis node loses queued jobs when it is replaced or its zone fails.",
					Suggestion:  "Use an AWS::ElastiCache::ReplicationGroup with automatic failover across zones.",
				}
			},
		},
		{
			ID:       "OPT-EC2-001",
			Category: CategoryReliability,
			Severity: "medium",
			Type:     "AWS::EC2::NatGateway",
			Title:    "Consider a NAT gateway per availability zone",
			Check: func(t *redash.Template, _ string, _ redash.ResourceDef) *redash.OptimizeSuggestion {
				if countType(t, "AWS::EC2::NatGateway") > 1 {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "All private subnets route through one NAT gateway, so its zone is a single point of failure for image pulls and outbound queries.",
					Suggestion:  "Add a NAT gateway and route table per zone, at the cost of one gateway-hour each.",
				}
			},
		},
		{
			ID:       "OPT-ECS-001",
			Category: CategoryPerformance,
			Severity: "low",
			Type:     "AWS::ECS::Cluster",
			Title:    "Enable Container Insights",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				settings, _ := res.Properties["ClusterSettings"].([]any)
				for _, s := range settings {
					m, _ := s.(map[string]any)
					if m["Name"] == "containerInsights" && m["Value"] == "enabled" {
						return nil
					}
				}
				return &redash.OptimizeSuggestion{
					Description: "Without Container Insights the CPU and memory behind the scaling policies is only visible per service.",
					Suggestion:  "Add ClusterSettings containerInsights=enabled.",
				}
			},
		},
		{
			ID:       "OPT-ELB-001",
			Category: CategorySecurity,
			Severity: "high",
			Type:     "AWS::ElasticLoadBalancingV2::Listener",
			Title:    "Serve Redash over HTTPS",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				if res.Properties["Protocol"] == "HTTPS" {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "The listener accepts plain HTTP, so login sessions and query results cross the internet unencrypted.",
					Suggestion:  "Add an HTTPS listener with an ACM certificate and redirect port 80 to it.",
				}
			},
		},
		{
			ID:       "OPT-LOGS-001",
			Category: CategoryCost,
			Severity: "low",
			Type:     "AWS::Logs::LogGroup",
			Title:    "Set log retention",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				if _, ok := toInt(res.Properties["RetentionInDays"]); ok {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "Log groups without retention keep container logs forever.",
					Suggestion:  "Set RetentionInDays.",
				}
			},
		},
		{
			ID:       "OPT-RDS-001",
			Category: CategoryReliability,
			Severity: "high",
			Type:     "AWS::RDS::DBInstance",
			Title:    "Consider a Multi-AZ metadata database",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				if isTrue(res.Properties["MultiAZ"]) {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "Redash stores users, queries and dashboards in this instance; a zone failure makes it unavailable.",
					Suggestion:  "Set MultiAZ to true.",
				}
			},
		},
		{
			ID:       "OPT-RDS-002",
			Category: CategoryReliability,
			Severity: "medium",
			Type:     "AWS::RDS::DBInstance",
			Title:    "Keep at least a week of backups",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				if n, ok := toInt(res.Properties["BackupRetentionPeriod"]); ok && n >= MinBackupRetentionDays {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "The default backup retention is one day.",
					Suggestion:  "Set BackupRetentionPeriod to 7 or more.",
				}
			},
		},
		{
			ID:       "OPT-RDS-003",
			Category: CategoryReliability,
			Severity: "medium",
			Type:     "AWS::RDS::DBInstance",
			Title:    "Enable deletion protection",
			Check: func(_ *redash.Template, _ string, res redash.ResourceDef) *redash.OptimizeSuggestion {
				if isTrue(res.Properties["DeletionProtection"]) {
					return nil
				}
				return &redash.OptimizeSuggestion{
					Description: "Deleting the stack deletes the metadata database.",
					Suggestion:  "Set DeletionProtection to true for long-lived stages.",
				}
			},
		},
	}
}
