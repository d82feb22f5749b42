// Package ec2 contains AWS::EC2 resource types.
package ec2

import "strconv"

// VPC is AWS::EC2::VPC.
type VPC struct {
	CidrBlock          string `json:"CidrBlock"`
	EnableDnsHostnames bool   `json:"EnableDnsHostnames,omitempty"`
	EnableDnsSupport   bool   `json:"EnableDnsSupport,omitempty"`
	Tags               []any  `json:"Tags,omitempty"`
}

func (VPC) ResourceType() string { return "AWS::EC2::VPC" }

// Subnet is AWS::EC2::Subnet.
type Subnet struct {
	VpcId               any    `json:"VpcId"`
	CidrBlock           string `json:"CidrBlock"`
	AvailabilityZone    any    `json:"AvailabilityZone,omitempty"`
	MapPublicIpOnLaunch bool   `json:"MapPublicIpOnLaunch,omitempty"`
	Tags                []any  `json:"Tags,omitempty"`
}

func (Subnet) ResourceType() string { return "AWS::EC2::Subnet" }

// InternetGateway is AWS::EC2::InternetGateway.
type InternetGateway struct {
	Tags []any `json:"Tags,omitempty"`
}

func (InternetGateway) ResourceType() string { return "AWS::EC2::InternetGateway" }

// VPCGatewayAttachment is AWS::EC2::VPCGatewayAttachment.
type VPCGatewayAttachment struct {
	VpcId             any `json:"VpcId"`
	InternetGatewayId any `json:"InternetGatewayId,omitempty"`
}

func (VPCGatewayAttachment) ResourceType() string { return "AWS::EC2::VPCGatewayAttachment" }

// EIP is AWS::EC2::EIP.
type EIP struct {
	Domain string `json:"Domain,omitempty"`
	Tags   []any  `json:"Tags,omitempty"`
}

func (EIP) ResourceType() string { return "AWS::EC2::EIP" }

// NatGateway is AWS::EC2::NatGateway.
type NatGateway struct {
	AllocationId any   `json:"AllocationId"`
	SubnetId     any   `json:"SubnetId"`
	Tags         []any `json:"Tags,omitempty"`
}

func (NatGateway) ResourceType() string { return "AWS::EC2::NatGateway" }

// RouteTable is AWS::EC2::RouteTable.
type RouteTable struct {
	VpcId any   `json:"VpcId"`
	Tags  []any `json:"Tags,omitempty"`
}

func (RouteTable) ResourceType() string { return "AWS::EC2::RouteTable" }

// Route is AWS::EC2::Route.
type Route struct {
	RouteTableId         any    `json:"RouteTableId"`
	DestinationCidrBlock string `json:"DestinationCidrBlock"`
	GatewayId            any    `json:"GatewayId,omitempty"`
	NatGatewayId         any    `json:"NatGatewayId,omitempty"`
}

func (Route) ResourceType() string { return "AWS::EC2::Route" }

// SubnetRouteTableAssociation is AWS::EC2::SubnetRouteTableAssociation.
type SubnetRouteTableAssociation struct {
	RouteTableId any `json:"RouteTableId"`
	SubnetId     any `json:"SubnetId"`
}

func (SubnetRouteTableAssociation) ResourceType() string {
	return "AWS::EC2::SubnetRouteTableAssociation"
}

// SecurityGroup is AWS::EC2::SecurityGroup.
type SecurityGroup struct {
	GroupName            string                  `json:"GroupName,omitempty"`
	GroupDescription     string                  `json:"GroupDescription"`
	VpcId                any                     `json:"VpcId"`
	SecurityGroupIngress []SecurityGroup_Ingress `json:"SecurityGroupIngress,omitempty"`
	SecurityGroupEgress  []SecurityGroup_Egress  `json:"SecurityGroupEgress,omitempty"`
	Tags                 []any                   `json:"Tags,omitempty"`
}

func (SecurityGroup) ResourceType() string { return "AWS::EC2::SecurityGroup" }

// SecurityGroup_Ingress is an inline ingress rule.
type SecurityGroup_Ingress struct {
	IpProtocol            string `json:"IpProtocol"`
	CidrIp                string `json:"CidrIp,omitempty"`
	SourceSecurityGroupId any    `json:"SourceSecurityGroupId,omitempty"`
	FromPort              int    `json:"FromPort,omitempty"`
	ToPort                int    `json:"ToPort,omitempty"`
	Description           string `json:"Description,omitempty"`
}

// SecurityGroup_Egress is an inline egress rule.
type SecurityGroup_Egress struct {
	IpProtocol  string `json:"IpProtocol"`
	CidrIp      string `json:"CidrIp,omitempty"`
	Description string `json:"Description,omitempty"`
}

// AllowAllOutbound is the egress rule set of a security group with unrestricted outbound traffic.
var AllowAllOutbound = []SecurityGroup_Egress{{
	IpProtocol:  "-1",
	CidrIp:      "0.0.0.0/0",
	Description: "Allow all outbound traffic by default",
}}

// TCPIngress allows TCP traffic on port from an IPv4 CIDR block.
func TCPIngress(cidr string, port int) SecurityGroup_Ingress {
	return SecurityGroup_Ingress{
		IpProtocol:  "tcp",
		CidrIp:      cidr,
		FromPort:    port,
		ToPort:      port,
		Description: "from " + cidr + ":" + strconv.Itoa(port),
	}
}
