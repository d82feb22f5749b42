// Package elasticloadbalancingv2 contains AWS::ElasticLoadBalancingV2 resource types.
package elasticloadbalancingv2

// LoadBalancer is AWS::ElasticLoadBalancingV2::LoadBalancer.
type LoadBalancer struct {
	Name           string `json:"Name,omitempty"`
	Scheme         string `json:"Scheme,omitempty"`
	Type           string `json:"Type,omitempty"`
	Subnets        []any  `json:"Subnets,omitempty"`
	SecurityGroups []any  `json:"SecurityGroups,omitempty"`
	Tags           []any  `json:"Tags,omitempty"`
}

func (LoadBalancer) ResourceType() string { return "AWS::ElasticLoadBalancingV2::LoadBalancer" }

// TargetGroup is AWS::ElasticLoadBalancingV2::TargetGroup.
type TargetGroup struct {
	Name                       string               `json:"Name,omitempty"`
	Port                       int                  `json:"Port,omitempty"`
	Protocol                   string               `json:"Protocol,omitempty"`
	TargetType                 string               `json:"TargetType,omitempty"`
	VpcId                      any                  `json:"VpcId,omitempty"`
	HealthCheckPath            string               `json:"HealthCheckPath,omitempty"`
	HealthCheckIntervalSeconds int                  `json:"HealthCheckIntervalSeconds,omitempty"`
	Matcher                    *TargetGroup_Matcher `json:"Matcher,omitempty"`
	Tags                       []any                `json:"Tags,omitempty"`
}

func (TargetGroup) ResourceType() string { return "AWS::ElasticLoadBalancingV2::TargetGroup" }

// TargetGroup_Matcher lists the HTTP codes a healthy target returns.
type TargetGroup_Matcher struct {
	HttpCode string `json:"HttpCode"`
}

// Listener is AWS::ElasticLoadBalancingV2::Listener.
type Listener struct {
	LoadBalancerArn any               `json:"LoadBalancerArn"`
	Port            int               `json:"Port"`
	Protocol        string            `json:"Protocol"`
	DefaultActions  []Listener_Action `json:"DefaultActions"`
}

func (Listener) ResourceType() string { return "AWS::ElasticLoadBalancingV2::Listener" }

// Listener_Action is a listener default action.
type Listener_Action struct {
	Type           string `json:"Type"`
	TargetGroupArn any    `json:"TargetGroupArn,omitempty"`
}
