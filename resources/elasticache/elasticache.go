// Package elasticache contains AWS::ElastiCache resource types.
package elasticache

// CacheCluster is AWS::ElastiCache::CacheCluster.
type CacheCluster struct {
	ClusterName             string `json:"ClusterName,omitempty"`
	Engine                  string `json:"Engine"`
	EngineVersion           string `json:"EngineVersion,omitempty"`
	CacheNodeType           string `json:"CacheNodeType"`
	NumCacheNodes           int    `json:"NumCacheNodes"`
	Port                    int    `json:"Port,omitempty"`
	AZMode                  string `json:"AZMode,omitempty"`
	AutoMinorVersionUpgrade bool   `json:"AutoMinorVersionUpgrade,omitempty"`
	CacheSubnetGroupName    any    `json:"CacheSubnetGroupName,omitempty"`
	VpcSecurityGroupIds     []any  `json:"VpcSecurityGroupIds,omitempty"`
	Tags                    []any  `json:"Tags,omitempty"`
}

func (CacheCluster) ResourceType() string { return "AWS::ElastiCache::CacheCluster" }

// SubnetGroup is AWS::ElastiCache::SubnetGroup.
type SubnetGroup struct {
	CacheSubnetGroupName string `json:"CacheSubnetGroupName,omitempty"`
	Description          string `json:"Description"`
	SubnetIds            []any  `json:"SubnetIds"`
	Tags                 []any  `json:"Tags,omitempty"`
}

func (SubnetGroup) ResourceType() string { return "AWS::ElastiCache::SubnetGroup" }
