package intrinsics

import (
	"encoding/json"
)

const policyVersion = "2012-10-17"

// PolicyDocument is an IAM policy document as embedded in AWS::IAM::Role.
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument wraps statements in a document carrying the current policy version.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: policyVersion, Statement: statements}
}

type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
}

// ServicePrincipal marshals as {"Service": name} for a single service
// and {"Service": [names...]} otherwise.
type ServicePrincipal []any

func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	var service any = []any(p)
	if len(p) == 1 {
		service = p[0]
	}
	return json.Marshal(struct {
		Service any `json:"Service"`
	}{service})
}

// AssumeRolePolicy lets the given AWS services assume a role.
func AssumeRolePolicy(services ...any) PolicyDocument {
	return NewPolicyDocument(PolicyStatement{
		Effect:    "Allow",
		Principal: ServicePrincipal(services),
		Action:    "sts:AssumeRole",
	})
}

// SecretReadPolicy grants read access to the listed Secrets Manager secrets.
func SecretReadPolicy(secretArns []any) PolicyDocument {
	return NewPolicyDocument(PolicyStatement{
		Effect:   "Allow",
		Action:   []any{"secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"},
		Resource: secretArns,
	})
}

// ManagedPolicyArn returns the partition-aware ARN of an AWS managed policy,
// e.g. "service-role/AmazonECSTaskExecutionRolePolicy".
func ManagedPolicyArn(name string) Sub {
	return Sub{String: "arn:${AWS::Partition}:iam::aws:policy/" + name}
}
