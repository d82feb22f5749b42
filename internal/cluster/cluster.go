// Package cluster declares the ECS cluster every Redash service runs in.
package cluster

import (
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/ecs"
)

// Cluster is the declared ECS cluster.
type Cluster struct {
	Name   string
	Handle template.Handle
}

// Ref returns the cluster name.
func (c *Cluster) Ref() intrinsics.Ref { return c.Handle.Ref() }

// Arn returns the cluster ARN attribute.
func (c *Cluster) Arn() intrinsics.GetAtt { return c.Handle.GetAtt("Arn") }

// Provision declares <stage>-redash-cluster with Container Insights enabled.
func Provision(cfg config.Config, stack *template.Stack) (*Cluster, error) {
	name := naming.New(cfg.StageName).Cluster()

	h, err := stack.Add(naming.LogicalID(name), &ecs.Cluster{
		ClusterName: name,
		ClusterSettings: []ecs.Cluster_ClusterSettings{
			{Name: "containerInsights", Value: "enabled"},
		},
		Tags: intrinsics.Tags("Name", name, "Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}
	return &Cluster{Name: name, Handle: h}, nil
}
