// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds helpers for Secrets Manager dynamic references.
//
// Core intrinsic functions:
//
//	Ref{LogicalName: "DevRedashVpc"} → {"Ref": "DevRedashVpc"}
//	Sub{String: "${AWS::Region}-redash"} → {"Fn::Sub": "${AWS::Region}-redash"}
//	Join{Delimiter: ",", Values: []any{"a", "b"}} → {"Fn::Join": [",", ["a", "b"]]}
//
// IAM helpers build the role documents ECS tasks need:
//
//	AssumeRolePolicy("ecs-tasks.amazonaws.com")
//	SecretReadPolicy([]any{Ref{LogicalName: "DevRedashSecretSecret"}})
package intrinsics

import (
	"strings"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// SubWithMap is Fn::Sub with a variable map.
	SubWithMap = intrinsics.SubWithMap

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// GetAZs represents a CloudFormation Fn::GetAZs intrinsic function.
	GetAZs = intrinsics.GetAZs

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// AWS_REGION is the AWS::Region pseudo-parameter.
var AWS_REGION = intrinsics.AWS_REGION

// SelectAZ picks the i-th availability zone of the stack's region.
func SelectAZ(i int) Select {
	return Select{Index: i, List: GetAZs{Region: ""}}
}

// ResolveSecret returns a Secrets Manager dynamic reference for one JSON key of a
// secret. secretID may contain Fn::Sub variables such as "${DbSecretArn}".
//
// CloudFormation substitutes the value while applying the stack, so the plaintext
// never exists in the template or in this process.
//
//	ResolveSecret("${DbSecretArn}", "password")
//	  → "{{resolve:secretsmanager:${DbSecretArn}:SecretString:password}}"
func ResolveSecret(secretID, jsonKey string) string {
	return "{{resolve:secretsmanager:" + secretID + ":SecretString:" + jsonKey + "}}"
}

// IsDynamicReference reports whether s contains a CloudFormation dynamic reference.
func IsDynamicReference(s string) bool {
	return strings.Contains(s, "{{resolve:")
}

// Tags builds a tag list from alternating key/value pairs.
func Tags(kv ...string) []any {
	tags := make([]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags = append(tags, Tag{Key: kv[i], Value: kv[i+1]})
	}
	return tags
}
