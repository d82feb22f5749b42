// Package resources groups the typed CloudFormation resources used by the Redash stack.
//
// Each subpackage mirrors one AWS service namespace (ec2, ecs, rds, ...). Types
// implement redash_aws.Resource and serialize to CloudFormation properties with
// encoding/json; property types use the Type_Property naming of the
// CloudFormation resource specification.
package resources
