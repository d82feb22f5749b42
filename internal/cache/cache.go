// Package cache declares the Redis cluster used as the Redash queue broker.
package cache

import (
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/elasticache"
)

const (
	Engine        = "redis"
	EngineVersion = "5.0.0"
	NodeType      = "cache.t3.micro"
	NumNodes      = 1
	AZMode        = "single-az"
	Port          = 6379
)

// Cluster is the declared cache cluster.
type Cluster struct {
	Handle        template.Handle
	SubnetGroup   template.Handle
	SecurityGroup template.Handle
}

// Address is the Redis endpoint address attribute.
func (c *Cluster) Address() intrinsics.GetAtt { return c.Handle.GetAtt("RedisEndpoint.Address") }

// Port is the Redis endpoint port attribute.
func (c *Cluster) Port() intrinsics.GetAtt { return c.Handle.GetAtt("RedisEndpoint.Port") }

// URL returns redis://<address>:<port>/0 as an Fn::Sub.
func (c *Cluster) URL() intrinsics.SubWithMap {
	return intrinsics.SubWithMap{
		String: "redis://${Address}:${Port}/0",
		Variables: map[string]any{
			"Address": c.Address(),
			"Port":    c.Port(),
		},
	}
}

// Provision declares the subnet group over the private tier, a security group
// open to the private tier on Port, and the cluster itself.
func Provision(cfg config.Config, stack *template.Stack, n *network.Network) (*Cluster, error) {
	names := naming.New(cfg.StageName)

	group, err := stack.Add(naming.LogicalID(names.CacheSubnetGroup()), &elasticache.SubnetGroup{
		CacheSubnetGroupName: names.CacheSubnetGroup(),
		Description:          "Redash redis Subnet Group",
		SubnetIds:            n.SubnetIDs(network.Private),
	})
	if err != nil {
		return nil, err
	}

	sg, err := network.AddTierSecurityGroup(stack, n, names.CacheSecurityGroup(), cfg.StageName,
		"Redash redis Security Group", network.Private, Port)
	if err != nil {
		return nil, err
	}

	// The subnet group is passed by name, so the ordering edge is explicit.
	cluster, err := stack.Add(naming.LogicalID(names.Cache()), &elasticache.CacheCluster{
		ClusterName:             names.Cache(),
		Engine:                  Engine,
		EngineVersion:           EngineVersion,
		CacheNodeType:           NodeType,
		NumCacheNodes:           NumNodes,
		Port:                    Port,
		AZMode:                  AZMode,
		AutoMinorVersionUpgrade: true,
		CacheSubnetGroupName:    names.CacheSubnetGroup(),
		VpcSecurityGroupIds:     []any{sg.GetAtt("GroupId")},
		Tags:                    intrinsics.Tags("Name", names.Cache(), "Stage", cfg.StageName),
	}, template.DependsOn(group))
	if err != nil {
		return nil, err
	}

	return &Cluster{Handle: cluster, SubnetGroup: group, SecurityGroup: sg}, nil
}
