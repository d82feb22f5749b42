// Package network resolves the VPC the Redash stack runs in.
//
// With a configured VPC ID the network is looked up read-only; otherwise a
// two-AZ VPC with public, private (NAT) and isolated tiers is declared.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/rs/zerolog"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/ec2"
)

var (
	// ErrNetworkNotFound is returned when the configured VPC does not exist.
	ErrNetworkNotFound = errors.New("network not found")

	// ErrMissingTier is returned when a looked-up VPC lacks a required subnet tier.
	ErrMissingTier = errors.New("network is missing a subnet tier")
)

// Tier classifies a subnet by its route to the internet.
type Tier string

const (
	Public   Tier = "public"
	Private  Tier = "private"
	Isolated Tier = "isolated"
)

// Layout of a created network.
const (
	VPCCIDR     = "10.0.0.0/16"
	MaxAZs      = 2
	NATGateways = 1
)

// SubnetSpec is one entry of the subnet configuration, applied once per AZ.
type SubnetSpec struct {
	Name      string
	Tier      Tier
	PrefixLen int
}

// SubnetLayout is the subnet configuration of a created network, in carving order.
var SubnetLayout = []SubnetSpec{
	{Name: "private-subnet-1", Tier: Private, PrefixLen: 24},
	{Name: "public-subnet-1", Tier: Public, PrefixLen: 24},
	{Name: "isolated-subnet-1", Tier: Isolated, PrefixLen: 28},
}

// Subnet is a subnet of the resolved network. ID is a literal subnet ID for a
// looked-up network and a Ref for a created one.
type Subnet struct {
	ID   any
	CIDR string
	AZ   any
}

// Network is the resolved VPC and its tiers.
type Network struct {
	VpcID    any
	CIDR     string
	Owned    bool
	Public   []Subnet
	Private  []Subnet
	Isolated []Subnet
}

// Subnets returns the subnets of a tier.
func (n *Network) Subnets(tier Tier) []Subnet {
	switch tier {
	case Public:
		return n.Public
	case Private:
		return n.Private
	case Isolated:
		return n.Isolated
	}
	return nil
}

// SubnetIDs returns the subnet IDs of a tier.
func (n *Network) SubnetIDs(tier Tier) []any {
	subnets := n.Subnets(tier)
	ids := make([]any, len(subnets))
	for i, s := range subnets {
		ids[i] = s.ID
	}
	return ids
}

// CIDRs returns the CIDR blocks of a tier.
func (n *Network) CIDRs(tier Tier) []string {
	subnets := n.Subnets(tier)
	cidrs := make([]string, len(subnets))
	for i, s := range subnets {
		cidrs[i] = s.CIDR
	}
	return cidrs
}

// Description is the read-only view of an existing VPC.
type Description struct {
	VpcID   string
	CIDR    string
	Subnets []SubnetDescription
}

// SubnetDescription is an existing subnet with its classified tier.
type SubnetDescription struct {
	ID   string
	CIDR string
	AZ   string
	Tier Tier
}

// Lookup reads an existing VPC. Implementations return an error wrapping
// ErrNetworkNotFound when the VPC does not exist in the region.
type Lookup interface {
	LookupVPC(ctx context.Context, vpcID string) (*Description, error)
}

// Resolve returns the network for cfg. A failed lookup is returned verbatim
// and nothing is registered in the stack.
func Resolve(ctx context.Context, cfg config.Config, stack *template.Stack, lookup Lookup) (*Network, error) {
	logger := zerolog.Ctx(ctx)

	if cfg.VpcID == "" {
		logger.Debug().Str("cidr", VPCCIDR).Msg("declaring network")
		return Create(cfg, stack)
	}

	if lookup == nil {
		return nil, fmt.Errorf("looking up %s: no lookup configured", cfg.VpcID)
	}

	logger.Debug().Str("vpc_id", cfg.VpcID).Str("region", cfg.Region).Msg("looking up network")
	desc, err := lookup.LookupVPC(ctx, cfg.VpcID)
	if err != nil {
		return nil, err
	}
	return FromDescription(desc)
}

// FromDescription converts a looked-up VPC to a Network.
func FromDescription(desc *Description) (*Network, error) {
	n := &Network{VpcID: desc.VpcID, CIDR: desc.CIDR}
	for _, s := range desc.Subnets {
		subnet := Subnet{ID: s.ID, CIDR: s.CIDR, AZ: s.AZ}
		switch s.Tier {
		case Public:
			n.Public = append(n.Public, subnet)
		case Private:
			n.Private = append(n.Private, subnet)
		case Isolated:
			n.Isolated = append(n.Isolated, subnet)
		}
	}

	for _, tier := range []Tier{Public, Private, Isolated} {
		if len(n.Subnets(tier)) == 0 {
			return nil, fmt.Errorf("%w: %s has no %s subnets", ErrMissingTier, desc.VpcID, tier)
		}
	}
	return n, nil
}

// CarveSubnets allocates consecutive CIDR blocks for the layout, one per AZ for each
// SubnetSpec, in layout order.
func CarveSubnets(vpcCIDR string, layout []SubnetSpec, azs int) ([][]*net.IPNet, error) {
	_, base, err := net.ParseCIDR(vpcCIDR)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", vpcCIDR, err)
	}

	var (
		prev   *net.IPNet
		result = make([][]*net.IPNet, len(layout))
		all    []*net.IPNet
	)
	for i, spec := range layout {
		for az := 0; az < azs; az++ {
			var next *net.IPNet
			if prev == nil {
				baseLen, _ := base.Mask.Size()
				next, err = cidr.Subnet(base, spec.PrefixLen-baseLen, 0)
				if err != nil {
					return nil, fmt.Errorf("carving %s: %w", spec.Name, err)
				}
			} else {
				var rollover bool
				next, rollover = cidr.NextSubnet(prev, spec.PrefixLen)
				if rollover {
					return nil, fmt.Errorf("carving %s: address space exhausted", spec.Name)
				}
			}
			result[i] = append(result[i], next)
			all = append(all, next)
			prev = next
		}
	}

	if err := cidr.VerifyNoOverlap(all, base); err != nil {
		return nil, fmt.Errorf("carving subnets of %s: %w", vpcCIDR, err)
	}
	return result, nil
}

// Create declares a VPC with MaxAZs availability zones, one NAT gateway shared by
// the private subnets, and the SubnetLayout tiers.
func Create(cfg config.Config, stack *template.Stack) (*Network, error) {
	names := naming.New(cfg.StageName)
	tags := func(name string) []any {
		return intrinsics.Tags("Name", name, "Stage", cfg.StageName)
	}

	blocks, err := CarveSubnets(VPCCIDR, SubnetLayout, MaxAZs)
	if err != nil {
		return nil, err
	}

	vpc, err := stack.Add(names.Logical("vpc"), &ec2.VPC{
		CidrBlock:          VPCCIDR,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		Tags:               tags(names.VPC()),
	})
	if err != nil {
		return nil, err
	}

	igw, err := stack.Add(names.Logical("vpc", "igw"), &ec2.InternetGateway{
		Tags: tags(names.Physical("vpc", "igw")),
	})
	if err != nil {
		return nil, err
	}
	attachment, err := stack.Add(names.Logical("vpc", "igw-attachment"), &ec2.VPCGatewayAttachment{
		VpcId:             vpc.Ref(),
		InternetGatewayId: igw.Ref(),
	})
	if err != nil {
		return nil, err
	}

	n := &Network{VpcID: vpc.Ref(), CIDR: VPCCIDR, Owned: true}
	handles := make(map[Tier][]template.Handle)

	for i, spec := range SubnetLayout {
		for az, block := range blocks[i] {
			physical := names.Physical("vpc", spec.Name, fmt.Sprintf("az%d", az+1))
			h, err := stack.Add(naming.LogicalID(physical), &ec2.Subnet{
				VpcId:               vpc.Ref(),
				CidrBlock:           block.String(),
				AvailabilityZone:    intrinsics.SelectAZ(az),
				MapPublicIpOnLaunch: spec.Tier == Public,
				Tags:                append(tags(physical), intrinsics.Tag{Key: "Tier", Value: string(spec.Tier)}),
			})
			if err != nil {
				return nil, err
			}
			handles[spec.Tier] = append(handles[spec.Tier], h)

			subnet := Subnet{ID: h.Ref(), CIDR: block.String(), AZ: intrinsics.SelectAZ(az)}
			switch spec.Tier {
			case Public:
				n.Public = append(n.Public, subnet)
			case Private:
				n.Private = append(n.Private, subnet)
			case Isolated:
				n.Isolated = append(n.Isolated, subnet)
			}
		}
	}

	// Public tier routes to the internet gateway.
	publicRT, err := addRouteTable(stack, names, vpc, Public, handles[Public], tags)
	if err != nil {
		return nil, err
	}
	if _, err := stack.Add(names.Logical("vpc", "public-default-route"), &ec2.Route{
		RouteTableId:         publicRT.Ref(),
		DestinationCidrBlock: "0.0.0.0/0",
		GatewayId:            igw.Ref(),
	}, template.DependsOn(attachment)); err != nil {
		return nil, err
	}

	// One NAT gateway in the first public subnet serves every private subnet.
	eip, err := stack.Add(names.Logical("vpc", "nat-eip"), &ec2.EIP{
		Domain: "vpc",
		Tags:   tags(names.Physical("vpc", "nat-eip")),
	}, template.DependsOn(attachment))
	if err != nil {
		return nil, err
	}
	nat, err := stack.Add(names.Logical("vpc", "nat-gateway"), &ec2.NatGateway{
		AllocationId: eip.GetAtt("AllocationId"),
		SubnetId:     handles[Public][0].Ref(),
		Tags:         tags(names.Physical("vpc", "nat-gateway")),
	})
	if err != nil {
		return nil, err
	}

	privateRT, err := addRouteTable(stack, names, vpc, Private, handles[Private], tags)
	if err != nil {
		return nil, err
	}
	if _, err := stack.Add(names.Logical("vpc", "private-default-route"), &ec2.Route{
		RouteTableId:         privateRT.Ref(),
		DestinationCidrBlock: "0.0.0.0/0",
		NatGatewayId:         nat.Ref(),
	}); err != nil {
		return nil, err
	}

	// Isolated tier has no route out of the VPC.
	if _, err := addRouteTable(stack, names, vpc, Isolated, handles[Isolated], tags); err != nil {
		return nil, err
	}

	return n, nil
}

func addRouteTable(stack *template.Stack, names naming.Names, vpc template.Handle, tier Tier, subnets []template.Handle, tags func(string) []any) (template.Handle, error) {
	physical := names.Physical("vpc", string(tier), "route-table")
	rt, err := stack.Add(naming.LogicalID(physical), &ec2.RouteTable{
		VpcId: vpc.Ref(),
		Tags:  tags(physical),
	})
	if err != nil {
		return template.Handle{}, err
	}

	for i, subnet := range subnets {
		id := names.Logical("vpc", string(tier), "route-table-association", fmt.Sprintf("az%d", i+1))
		if _, err := stack.Add(id, &ec2.SubnetRouteTableAssociation{
			RouteTableId: rt.Ref(),
			SubnetId:     subnet.Ref(),
		}); err != nil {
			return template.Handle{}, err
		}
	}
	return rt, nil
}

// AddTierSecurityGroup declares a security group named physical that allows
// all outbound traffic and inbound TCP on port from each subnet CIDR of tier.
func AddTierSecurityGroup(stack *template.Stack, n *Network, physical, stage, description string, tier Tier, port int) (template.Handle, error) {
	cidrs := n.CIDRs(tier)
	ingress := make([]ec2.SecurityGroup_Ingress, len(cidrs))
	for i, c := range cidrs {
		ingress[i] = ec2.TCPIngress(c, port)
	}

	return stack.Add(naming.LogicalID(physical), &ec2.SecurityGroup{
		GroupName:            physical,
		GroupDescription:     description,
		VpcId:                n.VpcID,
		SecurityGroupIngress: ingress,
		SecurityGroupEgress:  ec2.AllowAllOutbound,
		Tags:                 intrinsics.Tags("Name", physical, "Stage", stage),
	})
}
