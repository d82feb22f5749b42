package awsclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/lex00/redash-aws-go/internal/network"
)

// VPCLookup reads existing VPCs through EC2. It implements network.Lookup.
type VPCLookup struct {
	EC2 EC2API
}

var _ network.Lookup = (*VPCLookup)(nil)

// LookupVPC describes vpcID and classifies each subnet by its route table: a
// default route to an internet gateway makes it public, a route to a NAT or
// transit gateway makes it private, anything else is isolated.
func (l *VPCLookup) LookupVPC(ctx context.Context, vpcID string) (*network.Description, error) {
	out, err := l.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{vpcID}})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", network.ErrNetworkNotFound, vpcID)
		}
		return nil, fmt.Errorf("describing %s: %w", vpcID, err)
	}
	if len(out.Vpcs) == 0 {
		return nil, fmt.Errorf("%w: %s", network.ErrNetworkNotFound, vpcID)
	}
	return l.describe(ctx, out.Vpcs[0])
}

// FindVPCByName returns the VPC tagged Name=name.
func (l *VPCLookup) FindVPCByName(ctx context.Context, name string) (*network.Description, error) {
	out, err := l.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{name}}},
	})
	if err != nil {
		return nil, fmt.Errorf("describing VPC %s: %w", name, err)
	}
	switch len(out.Vpcs) {
	case 0:
		return nil, fmt.Errorf("%w: no VPC tagged Name=%s", network.ErrNetworkNotFound, name)
	case 1:
		return l.describe(ctx, out.Vpcs[0])
	default:
		return nil, fmt.Errorf("%d VPCs tagged Name=%s", len(out.Vpcs), name)
	}
}

func (l *VPCLookup) describe(ctx context.Context, vpc ec2types.Vpc) (*network.Description, error) {
	vpcID := aws.ToString(vpc.VpcId)
	vpcFilter := []ec2types.Filter{{Name: aws.String("vpc-id"), Values: []string{vpcID}}}

	var subnets []ec2types.Subnet
	subnetPages := ec2.NewDescribeSubnetsPaginator(l.EC2, &ec2.DescribeSubnetsInput{Filters: vpcFilter})
	for subnetPages.HasMorePages() {
		page, err := subnetPages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing subnets of %s: %w", vpcID, err)
		}
		subnets = append(subnets, page.Subnets...)
	}

	var tables []ec2types.RouteTable
	tablePages := ec2.NewDescribeRouteTablesPaginator(l.EC2, &ec2.DescribeRouteTablesInput{Filters: vpcFilter})
	for tablePages.HasMorePages() {
		page, err := tablePages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing route tables of %s: %w", vpcID, err)
		}
		tables = append(tables, page.RouteTables...)
	}

	bySubnet, main := routeTableIndex(tables)

	desc := &network.Description{VpcID: vpcID, CIDR: aws.ToString(vpc.CidrBlock)}
	for _, s := range subnets {
		id := aws.ToString(s.SubnetId)
		table, ok := bySubnet[id]
		if !ok {
			table = main
		}
		desc.Subnets = append(desc.Subnets, network.SubnetDescription{
			ID:   id,
			CIDR: aws.ToString(s.CidrBlock),
			AZ:   aws.ToString(s.AvailabilityZone),
			Tier: classify(table),
		})
	}

	sort.Slice(desc.Subnets, func(i, j int) bool {
		a, b := desc.Subnets[i], desc.Subnets[j]
		if a.AZ != b.AZ {
			return a.AZ < b.AZ
		}
		return a.ID < b.ID
	})

	zerolog.Ctx(ctx).Debug().
		Str("vpc_id", vpcID).
		Int("subnets", len(desc.Subnets)).
		Int("route_tables", len(tables)).
		Msg("described network")
	return desc, nil
}

// routeTableIndex maps subnet IDs to their explicitly associated table and
// returns the VPC's main table.
func routeTableIndex(tables []ec2types.RouteTable) (map[string]*ec2types.RouteTable, *ec2types.RouteTable) {
	bySubnet := make(map[string]*ec2types.RouteTable)
	var main *ec2types.RouteTable
	for i := range tables {
		t := &tables[i]
		for _, assoc := range t.Associations {
			if aws.ToBool(assoc.Main) {
				main = t
			}
			if assoc.SubnetId != nil {
				bySubnet[aws.ToString(assoc.SubnetId)] = t
			}
		}
	}
	return bySubnet, main
}

func classify(table *ec2types.RouteTable) network.Tier {
	if table == nil {
		return network.Isolated
	}
	tier := network.Isolated
	for _, r := range table.Routes {
		if aws.ToString(r.DestinationCidrBlock) != "0.0.0.0/0" {
			continue
		}
		switch {
		case strings.HasPrefix(aws.ToString(r.GatewayId), "igw-"):
			return network.Public
		case r.NatGatewayId != nil, r.TransitGatewayId != nil:
			tier = network.Private
		}
	}
	return tier
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return strings.HasSuffix(code, ".NotFound") || code == "ResourceNotFoundException"
	}
	return false
}
