// Package ecr contains AWS::ECR resource types.
package ecr

// Repository is AWS::ECR::Repository.
type Repository struct {
	RepositoryName  string                      `json:"RepositoryName,omitempty"`
	LifecyclePolicy *Repository_LifecyclePolicy `json:"LifecyclePolicy,omitempty"`
	Tags            []any                       `json:"Tags,omitempty"`
}

func (Repository) ResourceType() string { return "AWS::ECR::Repository" }

// Repository_LifecyclePolicy holds the lifecycle policy JSON text.
type Repository_LifecyclePolicy struct {
	LifecyclePolicyText string `json:"LifecyclePolicyText"`
}
