// Package database declares the PostgreSQL metadata database.
package database

import (
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/rds"
)

const (
	Engine               = "postgres"
	EngineVersion        = "13.6"
	ParameterGroupFamily = "postgres13"
	InstanceClass        = "db.t3.micro"
	AllocatedStorage     = "20"
	DatabaseName         = "redash"
	Port                 = 5432
	MasterUsername       = "postgres"
	MaxConnections       = "100"
)

// Instance is the declared database instance.
type Instance struct {
	Handle         template.Handle
	ParameterGroup template.Handle
	SubnetGroup    template.Handle
	SecurityGroup  template.Handle
}

// Address is the endpoint address attribute.
func (i *Instance) Address() intrinsics.GetAtt { return i.Handle.GetAtt("Endpoint.Address") }

// Port is the endpoint port attribute.
func (i *Instance) Port() intrinsics.GetAtt { return i.Handle.GetAtt("Endpoint.Port") }

// CredentialSecretArn is the ARN of the RDS-managed secret holding the
// master username and password.
func (i *Instance) CredentialSecretArn() intrinsics.GetAtt {
	return i.Handle.GetAtt("MasterUserSecret.SecretArn")
}

// Provision declares the parameter group, subnet group, security group and
// instance. The instance sits in the isolated tier and accepts connections on
// Port from the private tier only.
func Provision(cfg config.Config, stack *template.Stack, n *network.Network) (*Instance, error) {
	names := naming.New(cfg.StageName)
	tags := func(name string) []any {
		return intrinsics.Tags("Name", name, "Stage", cfg.StageName)
	}

	params, err := stack.Add(naming.LogicalID(names.DatabaseParameterGroup()), &rds.DBParameterGroup{
		Description: "Redash Metadata DB Parameter Group",
		Family:      ParameterGroupFamily,
		Parameters:  map[string]string{"max_connections": MaxConnections},
		Tags:        tags(names.DatabaseParameterGroup()),
	})
	if err != nil {
		return nil, err
	}

	subnets, err := stack.Add(naming.LogicalID(names.DatabaseSubnetGroup()), &rds.DBSubnetGroup{
		DBSubnetGroupName:        names.DatabaseSubnetGroup(),
		DBSubnetGroupDescription: "Redash DB Subnet Group",
		SubnetIds:                n.SubnetIDs(network.Isolated),
		Tags:                     tags(names.DatabaseSubnetGroup()),
	})
	if err != nil {
		return nil, err
	}

	sg, err := network.AddTierSecurityGroup(stack, n, names.DatabaseSecurityGroup(), cfg.StageName,
		"Redash DB Security Group", network.Private, Port)
	if err != nil {
		return nil, err
	}

	notPublic := false
	instance, err := stack.Add(naming.LogicalID(names.DatabaseInstance()), &rds.DBInstance{
		DBInstanceIdentifier:     names.DatabaseInstance(),
		DBName:                   DatabaseName,
		Engine:                   Engine,
		EngineVersion:            EngineVersion,
		DBInstanceClass:          InstanceClass,
		AllocatedStorage:         AllocatedStorage,
		StorageType:              "gp2",
		StorageEncrypted:         true,
		Port:                     "5432",
		PubliclyAccessible:       &notPublic,
		DBParameterGroupName:     params.Ref(),
		DBSubnetGroupName:        subnets.Ref(),
		VPCSecurityGroups:        []any{sg.GetAtt("GroupId")},
		MasterUsername:           MasterUsername,
		ManageMasterUserPassword: true,
		CopyTagsToSnapshot:       true,
		Tags:                     tags(names.DatabaseInstance()),
	})
	if err != nil {
		return nil, err
	}

	return &Instance{
		Handle:         instance,
		ParameterGroup: params,
		SubnetGroup:    subnets,
		SecurityGroup:  sg,
	}, nil
}
