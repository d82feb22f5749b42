// Package ecs contains AWS::ECS resource types.
package ecs

// Cluster is AWS::ECS::Cluster.
type Cluster struct {
	ClusterName     string                    `json:"ClusterName,omitempty"`
	ClusterSettings []Cluster_ClusterSettings `json:"ClusterSettings,omitempty"`
	Tags            []any                     `json:"Tags,omitempty"`
}

func (Cluster) ResourceType() string { return "AWS::ECS::Cluster" }

// Cluster_ClusterSettings is a cluster setting such as containerInsights.
type Cluster_ClusterSettings struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// TaskDefinition is AWS::ECS::TaskDefinition.
type TaskDefinition struct {
	Family                  string                               `json:"Family,omitempty"`
	Cpu                     string                               `json:"Cpu,omitempty"`
	Memory                  string                               `json:"Memory,omitempty"`
	NetworkMode             string                               `json:"NetworkMode,omitempty"`
	RequiresCompatibilities []string                             `json:"RequiresCompatibilities,omitempty"`
	ExecutionRoleArn        any                                  `json:"ExecutionRoleArn,omitempty"`
	TaskRoleArn             any                                  `json:"TaskRoleArn,omitempty"`
	ContainerDefinitions    []TaskDefinition_ContainerDefinition `json:"ContainerDefinitions"`
	Tags                    []any                                `json:"Tags,omitempty"`
}

func (TaskDefinition) ResourceType() string { return "AWS::ECS::TaskDefinition" }

// TaskDefinition_ContainerDefinition describes one container of a task.
type TaskDefinition_ContainerDefinition struct {
	Name             string                           `json:"Name"`
	Image            any                              `json:"Image"`
	Essential        bool                             `json:"Essential,omitempty"`
	Command          []string                         `json:"Command,omitempty"`
	Environment      []TaskDefinition_KeyValuePair    `json:"Environment,omitempty"`
	Secrets          []TaskDefinition_Secret          `json:"Secrets,omitempty"`
	PortMappings     []TaskDefinition_PortMapping     `json:"PortMappings,omitempty"`
	LogConfiguration *TaskDefinition_LogConfiguration `json:"LogConfiguration,omitempty"`
}

// TaskDefinition_KeyValuePair is a plain environment variable.
type TaskDefinition_KeyValuePair struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// TaskDefinition_Secret injects a secret into the container environment.
// ValueFrom is the ARN of the secret; the value is resolved by ECS at task start.
type TaskDefinition_Secret struct {
	Name      string `json:"Name"`
	ValueFrom any    `json:"ValueFrom"`
}

// TaskDefinition_PortMapping exposes a container port.
type TaskDefinition_PortMapping struct {
	ContainerPort int    `json:"ContainerPort"`
	Protocol      string `json:"Protocol,omitempty"`
}

// TaskDefinition_LogConfiguration selects the container log driver.
type TaskDefinition_LogConfiguration struct {
	LogDriver string         `json:"LogDriver"`
	Options   map[string]any `json:"Options,omitempty"`
}

// Service is AWS::ECS::Service.
type Service struct {
	ServiceName                   string                           `json:"ServiceName,omitempty"`
	Cluster                       any                              `json:"Cluster"`
	TaskDefinition                any                              `json:"TaskDefinition"`
	DesiredCount                  int                              `json:"DesiredCount"`
	LaunchType                    string                           `json:"LaunchType,omitempty"`
	NetworkConfiguration          *Service_NetworkConfiguration    `json:"NetworkConfiguration,omitempty"`
	LoadBalancers                 []Service_LoadBalancer           `json:"LoadBalancers,omitempty"`
	HealthCheckGracePeriodSeconds int                              `json:"HealthCheckGracePeriodSeconds,omitempty"`
	DeploymentConfiguration       *Service_DeploymentConfiguration `json:"DeploymentConfiguration,omitempty"`
	Tags                          []any                            `json:"Tags,omitempty"`
}

func (Service) ResourceType() string { return "AWS::ECS::Service" }

// Service_NetworkConfiguration wraps the awsvpc settings of a Fargate service.
type Service_NetworkConfiguration struct {
	AwsvpcConfiguration *Service_AwsVpcConfiguration `json:"AwsvpcConfiguration"`
}

// Service_AwsVpcConfiguration places service tasks in subnets.
type Service_AwsVpcConfiguration struct {
	AssignPublicIp string `json:"AssignPublicIp,omitempty"`
	Subnets        []any  `json:"Subnets"`
	SecurityGroups []any  `json:"SecurityGroups,omitempty"`
}

// Service_LoadBalancer registers a container port with a target group.
type Service_LoadBalancer struct {
	ContainerName  string `json:"ContainerName"`
	ContainerPort  int    `json:"ContainerPort"`
	TargetGroupArn any    `json:"TargetGroupArn"`
}

// Service_DeploymentConfiguration bounds task counts during a deployment.
type Service_DeploymentConfiguration struct {
	MaximumPercent        int `json:"MaximumPercent,omitempty"`
	MinimumHealthyPercent int `json:"MinimumHealthyPercent,omitempty"`
}
