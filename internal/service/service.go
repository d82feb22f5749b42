package service

import (
	"fmt"

	"github.com/lex00/redash-aws-go/internal/cluster"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/ec2"
	"github.com/lex00/redash-aws-go/resources/ecs"
	elbv2 "github.com/lex00/redash-aws-go/resources/elasticloadbalancingv2"
)

// Load balancer settings of a public service.
const (
	ListenerPort       = 80
	HealthyHTTPCodes   = "200-399"
	HealthCheckPath    = "/"
	HealthCheckGrace   = 60
	deployMaxPercent   = 200
	deployMinHealthyPc = 50
)

// ServiceParams places a task definition in the cluster.
type ServiceParams struct {
	Task         *Task
	Cluster      *cluster.Cluster
	Network      *network.Network
	DesiredCount int
}

func (p ServiceParams) validate() error {
	if p.Task == nil || p.Cluster == nil || p.Network == nil {
		return fmt.Errorf("%w: task, cluster and network are required", ErrInvalidParams)
	}
	if p.DesiredCount < 1 {
		return fmt.Errorf("%w: %s: desired count %d must be at least 1", ErrInvalidParams, p.Task.ServiceName, p.DesiredCount)
	}
	if len(p.Network.Private) == 0 {
		return fmt.Errorf("%w: %s: network has no private subnets", ErrInvalidParams, p.Task.ServiceName)
	}
	return nil
}

// Service is a declared Fargate service in the private tier.
type Service struct {
	Name          string
	Task          *Task
	Cluster       *cluster.Cluster
	DesiredCount  int
	Handle        template.Handle
	SecurityGroup template.Handle
}

// LoadBalancedService is a Service behind an internet-facing application load balancer.
type LoadBalancedService struct {
	*Service
	LoadBalancer              template.Handle
	LoadBalancerSecurityGroup template.Handle
	TargetGroup               template.Handle
	Listener                  template.Handle
}

// DNSName returns the load balancer DNS name attribute.
func (s *LoadBalancedService) DNSName() intrinsics.GetAtt {
	return s.LoadBalancer.GetAtt("DNSName")
}

// DeployPrivate declares a service running p.Task in the private subnets
// without a public IP.
func DeployPrivate(cfg config.Config, stack *template.Stack, p ServiceParams) (*Service, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return deploy(cfg, stack, p, nil)
}

// DeployPublic declares an internet-facing load balancer in the public subnets
// forwarding HTTP to p.Task's port, and a private service registered with it.
func DeployPublic(cfg config.Config, stack *template.Stack, p ServiceParams) (*LoadBalancedService, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Task.Port == 0 {
		return nil, fmt.Errorf("%w: %s: a load balanced task needs a port", ErrInvalidParams, p.Task.ServiceName)
	}
	if len(p.Network.Public) == 0 {
		return nil, fmt.Errorf("%w: %s: network has no public subnets", ErrInvalidParams, p.Task.ServiceName)
	}

	names := naming.New(cfg.StageName)
	svc := p.Task.ServiceName
	lbName := names.LoadBalancer(svc)

	lbSG, err := stack.Add(naming.LogicalID(names.Physical(svc, "lb-sg")), &ec2.SecurityGroup{
		GroupDescription: "Redash " + svc + " load balancer",
		VpcId:            p.Network.VpcID,
		SecurityGroupIngress: []ec2.SecurityGroup_Ingress{
			ec2.TCPIngress("0.0.0.0/0", ListenerPort),
		},
		SecurityGroupEgress: ec2.AllowAllOutbound,
		Tags:                intrinsics.Tags("Name", names.Physical(svc, "lb-sg"), "Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}

	lb, err := stack.Add(naming.LogicalID(lbName), &elbv2.LoadBalancer{
		Scheme:         "internet-facing",
		Type:           "application",
		Subnets:        p.Network.SubnetIDs(network.Public),
		SecurityGroups: []any{lbSG.GetAtt("GroupId")},
		Tags:           intrinsics.Tags("Name", lbName, "Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}

	tg, err := stack.Add(naming.LogicalID(names.Physical(svc, "target-group")), &elbv2.TargetGroup{
		Port:            p.Task.Port,
		Protocol:        "HTTP",
		TargetType:      "ip",
		VpcId:           p.Network.VpcID,
		HealthCheckPath: HealthCheckPath,
		Matcher:         &elbv2.TargetGroup_Matcher{HttpCode: HealthyHTTPCodes},
		Tags:            intrinsics.Tags("Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}

	listener, err := stack.Add(naming.LogicalID(names.Physical(svc, "listener")), &elbv2.Listener{
		LoadBalancerArn: lb.Ref(),
		Port:            ListenerPort,
		Protocol:        "HTTP",
		DefaultActions:  []elbv2.Listener_Action{{Type: "forward", TargetGroupArn: tg.Ref()}},
	})
	if err != nil {
		return nil, err
	}

	service, err := deploy(cfg, stack, p, &loadBalancing{
		securityGroup: lbSG,
		targetGroup:   tg,
		listener:      listener,
	})
	if err != nil {
		return nil, err
	}

	return &LoadBalancedService{
		Service:                   service,
		LoadBalancer:              lb,
		LoadBalancerSecurityGroup: lbSG,
		TargetGroup:               tg,
		Listener:                  listener,
	}, nil
}

type loadBalancing struct {
	securityGroup template.Handle
	targetGroup   template.Handle
	listener      template.Handle
}

func deploy(cfg config.Config, stack *template.Stack, p ServiceParams, lb *loadBalancing) (*Service, error) {
	names := naming.New(cfg.StageName)
	svc := p.Task.ServiceName

	// Service tasks only accept traffic from their load balancer.
	sgProps := &ec2.SecurityGroup{
		GroupDescription:    "Redash " + svc + " service",
		VpcId:               p.Network.VpcID,
		SecurityGroupEgress: ec2.AllowAllOutbound,
		Tags:                intrinsics.Tags("Name", names.ServiceSecurityGroup(svc), "Stage", cfg.StageName),
	}
	if lb != nil {
		sgProps.SecurityGroupIngress = []ec2.SecurityGroup_Ingress{{
			IpProtocol:            "tcp",
			SourceSecurityGroupId: lb.securityGroup.GetAtt("GroupId"),
			FromPort:              p.Task.Port,
			ToPort:                p.Task.Port,
			Description:           "from load balancer",
		}}
	}
	sg, err := stack.Add(naming.LogicalID(names.ServiceSecurityGroup(svc)), sgProps)
	if err != nil {
		return nil, err
	}

	name := names.Service(svc)
	props := &ecs.Service{
		ServiceName:    name,
		Cluster:        p.Cluster.Ref(),
		TaskDefinition: p.Task.Arn(),
		DesiredCount:   p.DesiredCount,
		LaunchType:     "FARGATE",
		NetworkConfiguration: &ecs.Service_NetworkConfiguration{
			AwsvpcConfiguration: &ecs.Service_AwsVpcConfiguration{
				AssignPublicIp: "DISABLED",
				Subnets:        p.Network.SubnetIDs(network.Private),
				SecurityGroups: []any{sg.GetAtt("GroupId")},
			},
		},
		DeploymentConfiguration: &ecs.Service_DeploymentConfiguration{
			MaximumPercent:        deployMaxPercent,
			MinimumHealthyPercent: deployMinHealthyPc,
		},
		Tags: intrinsics.Tags("Name", name, "Stage", cfg.StageName),
	}

	var opts []template.Option
	if lb != nil {
		props.LoadBalancers = []ecs.Service_LoadBalancer{{
			ContainerName:  p.Task.ContainerName,
			ContainerPort:  p.Task.Port,
			TargetGroupArn: lb.targetGroup.Ref(),
		}}
		props.HealthCheckGracePeriodSeconds = HealthCheckGrace
		// The target group must be attached to the load balancer first.
		opts = append(opts, template.DependsOn(lb.listener))
	}

	h, err := stack.Add(naming.LogicalID(name), props, opts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		Name:          name,
		Task:          p.Task,
		Cluster:       p.Cluster,
		DesiredCount:  p.DesiredCount,
		Handle:        h,
		SecurityGroup: sg,
	}, nil
}
