package awsclient

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/redash-aws-go/internal/network"
)

type fakeEC2 struct {
	vpcs    []ec2types.Vpc
	vpcErr  error
	subnets []ec2types.Subnet
	tables  []ec2types.RouteTable

	vpcInputs []*ec2.DescribeVpcsInput
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	f.vpcInputs = append(f.vpcInputs, in)
	if f.vpcErr != nil {
		return nil, f.vpcErr
	}
	return &ec2.DescribeVpcsOutput{Vpcs: f.vpcs}, nil
}

func (f *fakeEC2) DescribeSubnets(context.Context, *ec2.DescribeSubnetsInput, ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	return &ec2.DescribeSubnetsOutput{Subnets: f.subnets}, nil
}

func (f *fakeEC2) DescribeRouteTables(context.Context, *ec2.DescribeRouteTablesInput, ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	return &ec2.DescribeRouteTablesOutput{RouteTables: f.tables}, nil
}

func subnet(id, cidr, az string) ec2types.Subnet {
	return ec2types.Subnet{SubnetId: aws.String(id), CidrBlock: aws.String(cidr), AvailabilityZone: aws.String(az)}
}

func defaultRoute(r ec2types.Route) []ec2types.Route {
	r.DestinationCidrBlock = aws.String("0.0.0.0/0")
	return []ec2types.Route{
		{DestinationCidrBlock: aws.String("172.31.0.0/16"), GatewayId: aws.String("local")},
		r,
	}
}

func existingVPC() *fakeEC2 {
	return &fakeEC2{
		vpcs: []ec2types.Vpc{{VpcId: aws.String("vpc-0123456789abcdef0"), CidrBlock: aws.String("172.31.0.0/16")}},
		subnets: []ec2types.Subnet{
			subnet("subnet-priv-b", "172.31.3.0/24", "us-east-1b"),
			subnet("subnet-pub-a", "172.31.0.0/24", "us-east-1a"),
			subnet("subnet-priv-a", "172.31.2.0/24", "us-east-1a"),
			subnet("subnet-iso-a", "172.31.4.0/28", "us-east-1a"),
		},
		tables: []ec2types.RouteTable{
			{
				RouteTableId: aws.String("rtb-main"),
				Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(true)}},
				Routes:       defaultRoute(ec2types.Route{}),
			},
			{
				RouteTableId: aws.String("rtb-public"),
				Associations: []ec2types.RouteTableAssociation{{SubnetId: aws.String("subnet-pub-a")}},
				Routes:       defaultRoute(ec2types.Route{GatewayId: aws.String("igw-1")}),
			},
			{
				RouteTableId: aws.String("rtb-private"),
				Associations: []ec2types.RouteTableAssociation{
					{SubnetId: aws.String("subnet-priv-a")},
					{SubnetId: aws.String("subnet-priv-b")},
				},
				Routes: defaultRoute(ec2types.Route{NatGatewayId: aws.String("nat-1")}),
			},
		},
	}
}

func TestLookupVPC(t *testing.T) {
	lookup := &VPCLookup{EC2: existingVPC()}

	desc, err := lookup.LookupVPC(context.Background(), "vpc-0123456789abcdef0")
	require.NoError(t, err)

	assert.Equal(t, "vpc-0123456789abcdef0", desc.VpcID)
	assert.Equal(t, "172.31.0.0/16", desc.CIDR)
	assert.Equal(t, []network.SubnetDescription{
		{ID: "subnet-iso-a", CIDR: "172.31.4.0/28", AZ: "us-east-1a", Tier: network.Isolated},
		{ID: "subnet-priv-a", CIDR: "172.31.2.0/24", AZ: "us-east-1a", Tier: network.Private},
		{ID: "subnet-pub-a", CIDR: "172.31.0.0/24", AZ: "us-east-1a", Tier: network.Public},
		{ID: "subnet-priv-b", CIDR: "172.31.3.0/24", AZ: "us-east-1b", Tier: network.Private},
	}, desc.Subnets)
}

func TestLookupVPC_NotFound(t *testing.T) {
	tests := []struct {
		name string
		ec2  *fakeEC2
	}{
		{
			name: "api error",
			ec2:  &fakeEC2{vpcErr: &smithy.GenericAPIError{Code: "InvalidVpcID.NotFound", Message: "does not exist"}},
		},
		{
			name: "empty result",
			ec2:  &fakeEC2{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&VPCLookup{EC2: tt.ec2}).LookupVPC(context.Background(), "vpc-0123456789abcdef0")
			assert.ErrorIs(t, err, network.ErrNetworkNotFound)
		})
	}
}

func TestLookupVPC_OtherError(t *testing.T) {
	boom := errors.New("throttled")
	_, err := (&VPCLookup{EC2: &fakeEC2{vpcErr: boom}}).LookupVPC(context.Background(), "vpc-0123456789abcdef0")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, network.ErrNetworkNotFound)
}

func TestFindVPCByName(t *testing.T) {
	fake := existingVPC()
	lookup := &VPCLookup{EC2: fake}

	desc, err := lookup.FindVPCByName(context.Background(), "dev-redash-vpc")
	require.NoError(t, err)
	assert.Equal(t, "vpc-0123456789abcdef0", desc.VpcID)

	require.Len(t, fake.vpcInputs, 1)
	require.Len(t, fake.vpcInputs[0].Filters, 1)
	assert.Equal(t, "tag:Name", aws.ToString(fake.vpcInputs[0].Filters[0].Name))
	assert.Equal(t, []string{"dev-redash-vpc"}, fake.vpcInputs[0].Filters[0].Values)

	fake.vpcs = nil
	_, err = lookup.FindVPCByName(context.Background(), "dev-redash-vpc")
	assert.ErrorIs(t, err, network.ErrNetworkNotFound)
}

func TestLookupVPC_FeedsNetwork(t *testing.T) {
	desc, err := (&VPCLookup{EC2: existingVPC()}).LookupVPC(context.Background(), "vpc-0123456789abcdef0")
	require.NoError(t, err)

	n, err := network.FromDescription(desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"172.31.2.0/24", "172.31.3.0/24"}, n.CIDRs(network.Private))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		table *ec2types.RouteTable
		want  network.Tier
	}{
		{"no table", nil, network.Isolated},
		{"local only", &ec2types.RouteTable{Routes: []ec2types.Route{{DestinationCidrBlock: aws.String("10.0.0.0/16"), GatewayId: aws.String("local")}}}, network.Isolated},
		{"internet gateway", &ec2types.RouteTable{Routes: defaultRoute(ec2types.Route{GatewayId: aws.String("igw-1")})}, network.Public},
		{"nat gateway", &ec2types.RouteTable{Routes: defaultRoute(ec2types.Route{NatGatewayId: aws.String("nat-1")})}, network.Private},
		{"transit gateway", &ec2types.RouteTable{Routes: defaultRoute(ec2types.Route{TransitGatewayId: aws.String("tgw-1")})}, network.Private},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.table))
		})
	}
}

type fakeSTS struct {
	account string
	err     error
}

func (f fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

func TestCallerAccount(t *testing.T) {
	account, err := CallerAccount(context.Background(), fakeSTS{account: "123456789012"})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", account)

	_, err = CallerAccount(context.Background(), fakeSTS{err: errors.New("expired")})
	assert.Error(t, err)
}
