// Package naming derives physical names and logical IDs from the stage name.
//
// Every name is a pure function of {stage, component, role}, so two builds of
// the same configuration name every resource identically.
package naming

import (
	"strings"

	"github.com/lex00/redash-aws-go/internal/serialize"
)

// Project is the fixed component inserted after the stage in every name.
const Project = "redash"

// Names derives resource names for one stage.
type Names struct {
	stage string
}

// New returns the names for stage.
func New(stage string) Names {
	return Names{stage: stage}
}

// Stage returns the stage name.
func (n Names) Stage() string { return n.stage }

// Physical joins the stage, project and parts with hyphens.
func (n Names) Physical(parts ...string) string {
	return strings.Join(append([]string{n.stage, Project}, parts...), "-")
}

// Logical converts the physical name of parts to a CloudFormation logical ID.
func (n Names) Logical(parts ...string) string {
	return LogicalID(n.Physical(parts...))
}

// LogicalID converts a physical name to an alphanumeric logical ID,
// e.g. "dev-redash-vpc" -> "DevRedashVpc".
func LogicalID(physical string) string {
	return serialize.ToPascalCase(physical)
}

func (n Names) StackName() string                 { return n.Physical("stack") }
func (n Names) VPC() string                       { return n.Physical("vpc") }
func (n Names) Cluster() string                   { return n.Physical("cluster") }
func (n Names) DatabaseInstance() string          { return n.Physical("rds") }
func (n Names) DatabaseParameterGroup() string    { return n.Physical("metadata-db-parameter-group") }
func (n Names) DatabaseSubnetGroup() string       { return n.Physical("rds-subnet-group") }
func (n Names) DatabaseSecurityGroup() string     { return n.Physical("ec2-rds-sg") }
func (n Names) Cache() string                     { return n.Physical("elasticache") }
func (n Names) CacheSubnetGroup() string          { return n.Physical("redis-subnet-group") }
func (n Names) CacheSecurityGroup() string        { return n.Physical("ec2-redis-sg") }
func (n Names) Repository() string                { return n.Physical("ecr-repository") }
func (n Names) Secret(name string) string         { return n.Physical(name, "secret") }
func (n Names) TaskFamily(svc string) string      { return n.Physical(svc, "task-definition") }
func (n Names) Container(svc string) string       { return n.Physical(svc, "container") }
func (n Names) LogStreamPrefix(svc string) string { return n.Physical(svc) }
func (n Names) LogGroup(svc string) string        { return "/ecs/" + n.Physical(svc) }
func (n Names) ExecutionRole(svc string) string   { return n.Physical(svc, "execution-role") }
func (n Names) Service(svc string) string         { return n.Physical(svc, "service") }
func (n Names) ServiceSecurityGroup(svc string) string {
	return n.Physical(svc, "service-sg")
}
func (n Names) LoadBalancer(svc string) string { return n.Physical(svc, "lb") }
func (n Names) ScalingPolicy(svc, metric string) string {
	return n.Physical(svc, "scale", metric)
}

// ServerURLOutput is the logical ID of the server address output.
func (n Names) ServerURLOutput() string {
	return LogicalID(n.stage + "-RedashServerUrl")
}

// RunCreateDBOutput is the logical ID of the manual create_db command output.
func (n Names) RunCreateDBOutput() string {
	return LogicalID("run-this-manually")
}
