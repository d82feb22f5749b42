// Package registry declares the optional ECR repository for custom Redash images.
package registry

import (
	"encoding/json"
	"fmt"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/ecr"
)

// KeepImages is the number of images the lifecycle policy retains.
const KeepImages = 10

// Repository is the declared ECR repository.
type Repository struct {
	Name   string
	Handle template.Handle
}

// URI returns the repository URI attribute.
func (r *Repository) URI() intrinsics.GetAtt { return r.Handle.GetAtt("RepositoryUri") }

type lifecycleRule struct {
	RulePriority int                `json:"rulePriority"`
	Description  string             `json:"description"`
	Selection    lifecycleSelection `json:"selection"`
	Action       lifecycleAction    `json:"action"`
}

type lifecycleSelection struct {
	TagStatus   string `json:"tagStatus"`
	CountType   string `json:"countType"`
	CountNumber int    `json:"countNumber"`
}

type lifecycleAction struct {
	Type string `json:"type"`
}

// LifecyclePolicy returns the policy text expiring all but the newest keep images.
func LifecyclePolicy(keep int) (string, error) {
	if keep < 1 {
		return "", fmt.Errorf("lifecycle policy must keep at least one image, got %d", keep)
	}
	doc := map[string][]lifecycleRule{
		"rules": {{
			RulePriority: 1,
			Description:  fmt.Sprintf("Keep only the last %d images", keep),
			Selection: lifecycleSelection{
				TagStatus:   "any",
				CountType:   "imageCountMoreThan",
				CountNumber: keep,
			},
			Action: lifecycleAction{Type: "expire"},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Provision declares <stage>-redash-ecr-repository when cfg.CreateRepository
// is set. It returns nil without error otherwise.
func Provision(cfg config.Config, stack *template.Stack) (*Repository, error) {
	if !cfg.CreateRepository {
		return nil, nil
	}

	policy, err := LifecyclePolicy(KeepImages)
	if err != nil {
		return nil, err
	}

	name := naming.New(cfg.StageName).Repository()
	h, err := stack.Add(naming.LogicalID(name), &ecr.Repository{
		RepositoryName:  name,
		LifecyclePolicy: &ecr.Repository_LifecyclePolicy{LifecyclePolicyText: policy},
		Tags:            intrinsics.Tags("Name", name, "Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}
	return &Repository{Name: name, Handle: h}, nil
}
