package policy

import (
	"net"
	"sort"
	"strings"

	redash "github.com/lex00/redash-aws-go"
)

// SecretInEnvironment flags environment variables that carry secret material
// or share a name with a container secret.
type SecretInEnvironment struct{}

func (SecretInEnvironment) ID() string { return "RDA001" }
func (SecretInEnvironment) Description() string {
	return "Secrets are never passed as container environment variables"
}

func (r SecretInEnvironment) Check(t *redash.Template, _ Options) []Issue {
	var issues []Issue
	for _, id := range sortedIDs(t, "AWS::ECS::TaskDefinition") {
		for _, c := range containerDefinitions(t.Resources[id]) {
			env := environment(c)
			for _, name := range secretNames(c) {
				if _, dup := env[name]; dup {
					issues = append(issues, newIssue(r, SeverityError, id,
						"%s is both an environment variable and a secret", name))
				}
			}

			names := make([]string, 0, len(env))
			for name := range env {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				value := env[name]
				if containsDynamicSecret(value) {
					issues = append(issues, newIssue(r, SeverityError, id,
						"environment variable %s resolves a secret value", name))
					continue
				}
				for _, ref := range referencesOf(value) {
					if isSecret(t, ref) {
						issues = append(issues, newIssue(r, SeverityError, id,
							"environment variable %s references secret %s", name, ref))
					}
				}
			}
		}
	}
	return issues
}

// DataTierIngress flags database and cache security group rules that admit
// anything other than private-tier CIDRs.
type DataTierIngress struct{}

func (DataTierIngress) ID() string { return "RDA002" }
func (DataTierIngress) Description() string {
	return "Database and cache accept traffic only from the private tier"
}

func (r DataTierIngress) Check(t *redash.Template, opts Options) []Issue {
	var private []*net.IPNet
	for _, c := range opts.PrivateCIDRs {
		if _, block, err := net.ParseCIDR(c); err == nil {
			private = append(private, block)
		}
	}

	groups := make(map[string]bool)
	for _, id := range sortedIDs(t, "AWS::RDS::DBInstance", "AWS::ElastiCache::CacheCluster") {
		props := t.Resources[id].Properties
		for _, key := range []string{"VPCSecurityGroups", "VpcSecurityGroupIds"} {
			for _, ref := range referencesOf(props[key]) {
				groups[ref] = true
			}
		}
	}

	var issues []Issue
	for _, id := range sortedIDs(t, "AWS::EC2::SecurityGroup") {
		if !groups[id] {
			continue
		}
		rules, _ := t.Resources[id].Properties["SecurityGroupIngress"].([]any)
		for _, item := range rules {
			rule, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := rule["SourceSecurityGroupId"]; ok {
				issues = append(issues, newIssue(r, SeverityError, id,
					"ingress from a security group; only private subnet CIDRs are allowed"))
				continue
			}
			cidr, _ := rule["CidrIp"].(string)
			if !withinAny(cidr, private) {
				issues = append(issues, newIssue(r, SeverityError, id,
					"ingress from %q is outside the private tier", cidr))
			}
		}
	}
	return issues
}

func withinAny(cidr string, blocks []*net.IPNet) bool {
	ip, block, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	ones, _ := block.Mask.Size()
	for _, b := range blocks {
		parentOnes, _ := b.Mask.Size()
		if b.Contains(ip) && ones >= parentOnes {
			return true
		}
	}
	return false
}

// OutputReferencesSecret flags outputs that expose a secret.
type OutputReferencesSecret struct{}

func (OutputReferencesSecret) ID() string { return "RDA003" }
func (OutputReferencesSecret) Description() string {
	return "Outputs never reference secrets"
}

func (r OutputReferencesSecret) Check(t *redash.Template, _ Options) []Issue {
	ids := make([]string, 0, len(t.Outputs))
	for id := range t.Outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var issues []Issue
	for _, id := range ids {
		value := t.Outputs[id].Value
		if containsDynamicSecret(value) {
			issues = append(issues, newIssue(r, SeverityError, id, "output resolves a secret value"))
			continue
		}
		for _, ref := range referencesOf(value) {
			if isSecret(t, ref) {
				issues = append(issues, newIssue(r, SeverityError, id, "output references secret %s", ref))
			}
		}
	}
	return issues
}

// OneOffTaskInService flags services that run a one-off task definition.
type OneOffTaskInService struct{}

func (OneOffTaskInService) ID() string { return "RDA004" }
func (OneOffTaskInService) Description() string {
	return "One-off task definitions are not run by a service"
}

func (r OneOffTaskInService) Check(t *redash.Template, opts Options) []Issue {
	var issues []Issue
	for _, id := range sortedIDs(t, "AWS::ECS::Service") {
		taskDef := t.Resources[id].Properties["TaskDefinition"]
		for _, task := range opts.OneOffTasks {
			if refersTo(taskDef, task) {
				issues = append(issues, newIssue(r, SeverityError, id,
					"service runs one-off task definition %s", task))
			}
		}
	}
	return issues
}

// OverlappingQueues flags a queue consumed by more than one service.
type OverlappingQueues struct{}

func (OverlappingQueues) ID() string { return "RDA005" }
func (OverlappingQueues) Description() string {
	return "Worker queue sets are disjoint"
}

func (r OverlappingQueues) Check(t *redash.Template, _ Options) []Issue {
	owners := make(map[string]string)
	var issues []Issue
	for _, id := range sortedIDs(t, "AWS::ECS::Service") {
		for _, taskID := range referencesOf(t.Resources[id].Properties["TaskDefinition"]) {
			task, ok := t.Resources[taskID]
			if !ok {
				continue
			}
			for _, c := range containerDefinitions(task) {
				queues, _ := environment(c)["QUEUES"].(string)
				if queues == "" {
					continue
				}
				for _, q := range strings.Split(queues, ",") {
					q = strings.TrimSpace(q)
					if owner, taken := owners[q]; taken && owner != id {
						issues = append(issues, newIssue(r, SeverityError, id,
							"queue %s is also consumed by %s", q, owner))
						continue
					}
					owners[q] = id
				}
			}
		}
	}
	return issues
}

// AutoscalingBounds flags inconsistent scalable targets and policies.
type AutoscalingBounds struct{}

func (AutoscalingBounds) ID() string { return "RDA006" }
func (AutoscalingBounds) Description() string {
	return "Autoscaling bounds and targets are consistent"
}

func (r AutoscalingBounds) Check(t *redash.Template, _ Options) []Issue {
	var issues []Issue
	for _, id := range sortedIDs(t, "AWS::ApplicationAutoScaling::ScalableTarget") {
		props := t.Resources[id].Properties
		minCap, _ := toFloat(props["MinCapacity"])
		maxCap, _ := toFloat(props["MaxCapacity"])
		if minCap < 1 {
			issues = append(issues, newIssue(r, SeverityError, id, "min capacity %.0f is below 1", minCap))
		}
		if maxCap < minCap {
			issues = append(issues, newIssue(r, SeverityError, id,
				"max capacity %.0f is below min capacity %.0f", maxCap, minCap))
		}
	}

	for _, id := range sortedIDs(t, "AWS::ApplicationAutoScaling::ScalingPolicy") {
		config, _ := t.Resources[id].Properties["TargetTrackingScalingPolicyConfiguration"].(map[string]any)
		if config == nil {
			continue
		}
		target, _ := toFloat(config["TargetValue"])
		if target <= 0 || target > 100 {
			issues = append(issues, newIssue(r, SeverityError, id, "target value %.1f outside (0, 100]", target))
		}
		for _, key := range []string{"ScaleInCooldown", "ScaleOutCooldown"} {
			if cooldown, ok := toFloat(config[key]); ok && cooldown < 0 {
				issues = append(issues, newIssue(r, SeverityError, id, "%s is negative", key))
			}
		}
	}
	return issues
}

// physicalNameKeys lists the property carrying the physical name per type.
var physicalNameKeys = map[string]string{
	"AWS::ECS::Cluster":              "ClusterName",
	"AWS::ECS::Service":              "ServiceName",
	"AWS::ECS::TaskDefinition":       "Family",
	"AWS::SecretsManager::Secret":    "Name",
	"AWS::RDS::DBInstance":           "DBInstanceIdentifier",
	"AWS::RDS::DBSubnetGroup":        "DBSubnetGroupName",
	"AWS::ElastiCache::CacheCluster": "ClusterName",
	"AWS::ElastiCache::SubnetGroup":  "CacheSubnetGroupName",
	"AWS::EC2::SecurityGroup":        "GroupName",
	"AWS::Logs::LogGroup":            "LogGroupName",
	"AWS::ECR::Repository":           "RepositoryName",
}

// DuplicatePhysicalName flags two resources of one type sharing a physical name.
type DuplicatePhysicalName struct{}

func (DuplicatePhysicalName) ID() string { return "RDA007" }
func (DuplicatePhysicalName) Description() string {
	return "Physical names are unique per resource type"
}

func (r DuplicatePhysicalName) Check(t *redash.Template, _ Options) []Issue {
	seen := make(map[string]string)
	var issues []Issue
	for _, id := range sortedIDs(t) {
		res := t.Resources[id]
		key, ok := physicalNameKeys[res.Type]
		if !ok {
			continue
		}
		name, ok := res.Properties[key].(string)
		if !ok || name == "" {
			continue
		}
		k := res.Type + "/" + name
		if first, dup := seen[k]; dup {
			issues = append(issues, newIssue(r, SeverityError, id,
				"%s %q is already used by %s", key, name, first))
			continue
		}
		seen[k] = id
	}
	return issues
}

// PublicDatabase flags database instances that are not explicitly private.
type PublicDatabase struct{}

func (PublicDatabase) ID() string { return "RDA008" }
func (PublicDatabase) Description() string {
	return "The database is not publicly accessible"
}

func (r PublicDatabase) Check(t *redash.Template, _ Options) []Issue {
	var issues []Issue
	for _, id := range sortedIDs(t, "AWS::RDS::DBInstance") {
		props := t.Resources[id].Properties
		switch public := props["PubliclyAccessible"].(type) {
		case bool:
			if public {
				issues = append(issues, newIssue(r, SeverityError, id, "database is publicly accessible"))
			}
		default:
			issues = append(issues, newIssue(r, SeverityWarning, id,
				"PubliclyAccessible is not set; the default depends on the subnet group"))
		}
		if encrypted, _ := props["StorageEncrypted"].(bool); !encrypted {
			issues = append(issues, newIssue(r, SeverityWarning, id, "storage is not encrypted"))
		}
	}
	return issues
}
