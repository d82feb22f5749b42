package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
)

func provision(t *testing.T) (*template.Stack, *network.Network, *Instance) {
	t.Helper()
	cfg := config.Config{StageName: "dev", Region: "us-east-1", RedashImage: config.DefaultRedashImage}
	stack := template.NewStack("")
	n, err := network.Create(cfg, stack)
	require.NoError(t, err)
	db, err := Provision(cfg, stack, n)
	require.NoError(t, err)
	return stack, n, db
}

func TestProvision_Instance(t *testing.T) {
	stack, _, db := provision(t)

	assert.Equal(t, "DevRedashRds", db.Handle.LogicalID)
	props, ok := stack.Properties(db.Handle.LogicalID)
	require.True(t, ok)

	assert.Equal(t, "dev-redash-rds", props["DBInstanceIdentifier"])
	assert.Equal(t, "postgres", props["Engine"])
	assert.Equal(t, "13.6", props["EngineVersion"])
	assert.Equal(t, "db.t3.micro", props["DBInstanceClass"])
	assert.Equal(t, "redash", props["DBName"])
	assert.Equal(t, "5432", props["Port"])
	assert.Equal(t, false, props["PubliclyAccessible"])
	assert.Equal(t, true, props["ManageMasterUserPassword"])
	assert.NotContains(t, props, "MasterUserPassword")
	assert.Equal(t, map[string]any{"Ref": "DevRedashRdsSubnetGroup"}, props["DBSubnetGroupName"])
	assert.Equal(t, map[string]any{"Ref": "DevRedashMetadataDbParameterGroup"}, props["DBParameterGroupName"])
}

func TestProvision_IsolatedSubnets(t *testing.T) {
	stack, n, db := provision(t)

	props, _ := stack.Properties(db.SubnetGroup.LogicalID)
	ids := props["SubnetIds"].([]any)
	require.Len(t, ids, len(n.Isolated))
	assert.Equal(t, map[string]any{"Ref": "DevRedashVpcIsolatedSubnet1Az1"}, ids[0])
	assert.Equal(t, map[string]any{"Ref": "DevRedashVpcIsolatedSubnet1Az2"}, ids[1])
}

func TestProvision_ParameterGroup(t *testing.T) {
	stack, _, db := provision(t)

	props, _ := stack.Properties(db.ParameterGroup.LogicalID)
	assert.Equal(t, "postgres13", props["Family"])
	assert.Equal(t, map[string]any{"max_connections": "100"}, props["Parameters"])
}

func TestProvision_SecurityGroupAllowsOnlyPrivateTier(t *testing.T) {
	stack, n, db := provision(t)

	props, _ := stack.Properties(db.SecurityGroup.LogicalID)
	assert.Equal(t, "dev-redash-ec2-rds-sg", props["GroupName"])
	assert.Equal(t, "Redash DB Security Group", props["GroupDescription"])

	ingress := props["SecurityGroupIngress"].([]any)
	var cidrs []string
	for _, r := range ingress {
		rule := r.(map[string]any)
		assert.Equal(t, "tcp", rule["IpProtocol"])
		assert.Equal(t, int64(Port), rule["FromPort"])
		assert.Equal(t, int64(Port), rule["ToPort"])
		cidrs = append(cidrs, rule["CidrIp"].(string))
	}
	assert.Equal(t, n.CIDRs(network.Private), cidrs)

	egress := props["SecurityGroupEgress"].([]any)
	require.Len(t, egress, 1)
	assert.Equal(t, "0.0.0.0/0", egress[0].(map[string]any)["CidrIp"])
}

func TestProvision_LookedUpNetwork(t *testing.T) {
	cfg := config.Config{StageName: "prod", Region: "us-east-1", RedashImage: config.DefaultRedashImage}
	stack := template.NewStack("")
	n := &network.Network{
		VpcID:    "vpc-0123456789abcdef0",
		Public:   []network.Subnet{{ID: "subnet-pub", CIDR: "172.31.0.0/24"}},
		Private:  []network.Subnet{{ID: "subnet-priv", CIDR: "172.31.1.0/24"}},
		Isolated: []network.Subnet{{ID: "subnet-iso", CIDR: "172.31.2.0/28"}},
	}

	db, err := Provision(cfg, stack, n)
	require.NoError(t, err)

	props, _ := stack.Properties(db.SecurityGroup.LogicalID)
	assert.Equal(t, "vpc-0123456789abcdef0", props["VpcId"])
	ingress := props["SecurityGroupIngress"].([]any)
	require.Len(t, ingress, 1)
	assert.Equal(t, "172.31.1.0/24", ingress[0].(map[string]any)["CidrIp"])

	_, err = stack.Build()
	require.NoError(t, err)
}

func TestInstance_Attributes(t *testing.T) {
	_, _, db := provision(t)

	assert.Equal(t, intrinsics.GetAtt{LogicalName: "DevRedashRds", Attribute: "Endpoint.Address"}, db.Address())
	assert.Equal(t, intrinsics.GetAtt{LogicalName: "DevRedashRds", Attribute: "Endpoint.Port"}, db.Port())
	assert.Equal(t, intrinsics.GetAtt{LogicalName: "DevRedashRds", Attribute: "MasterUserSecret.SecretArn"}, db.CredentialSecretArn())
}

func TestProvision_DuplicateFails(t *testing.T) {
	stack, n, _ := provision(t)
	cfg := config.Config{StageName: "dev", Region: "us-east-1", RedashImage: config.DefaultRedashImage}

	_, err := Provision(cfg, stack, n)
	assert.ErrorIs(t, err, template.ErrDuplicateLogicalID)
}
