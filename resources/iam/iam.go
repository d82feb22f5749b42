// Package iam contains AWS::IAM resource types.
package iam

// Role is AWS::IAM::Role.
type Role struct {
	RoleName                 string        `json:"RoleName,omitempty"`
	Description              string        `json:"Description,omitempty"`
	AssumeRolePolicyDocument any           `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any         `json:"ManagedPolicyArns,omitempty"`
	Policies                 []Role_Policy `json:"Policies,omitempty"`
	Tags                     []any         `json:"Tags,omitempty"`
}

func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Role_Policy is an inline policy attached to a role.
type Role_Policy struct {
	PolicyName     string `json:"PolicyName"`
	PolicyDocument any    `json:"PolicyDocument"`
}
