// Package applicationautoscaling contains AWS::ApplicationAutoScaling resource types.
package applicationautoscaling

// ScalableTarget is AWS::ApplicationAutoScaling::ScalableTarget.
type ScalableTarget struct {
	MaxCapacity       int    `json:"MaxCapacity"`
	MinCapacity       int    `json:"MinCapacity"`
	ResourceId        any    `json:"ResourceId"`
	ScalableDimension string `json:"ScalableDimension"`
	ServiceNamespace  string `json:"ServiceNamespace"`
	RoleARN           any    `json:"RoleARN,omitempty"`
}

func (ScalableTarget) ResourceType() string {
	return "AWS::ApplicationAutoScaling::ScalableTarget"
}

// ScalingPolicy is AWS::ApplicationAutoScaling::ScalingPolicy.
type ScalingPolicy struct {
	PolicyName                               string                                                  `json:"PolicyName"`
	PolicyType                               string                                                  `json:"PolicyType"`
	ScalingTargetId                          any                                                     `json:"ScalingTargetId,omitempty"`
	TargetTrackingScalingPolicyConfiguration *ScalingPolicy_TargetTrackingScalingPolicyConfiguration `json:"TargetTrackingScalingPolicyConfiguration,omitempty"`
}

func (ScalingPolicy) ResourceType() string {
	return "AWS::ApplicationAutoScaling::ScalingPolicy"
}

// ScalingPolicy_TargetTrackingScalingPolicyConfiguration keeps a metric near TargetValue.
type ScalingPolicy_TargetTrackingScalingPolicyConfiguration struct {
	TargetValue                   float64                                      `json:"TargetValue"`
	ScaleInCooldown               int                                          `json:"ScaleInCooldown"`
	ScaleOutCooldown              int                                          `json:"ScaleOutCooldown"`
	DisableScaleIn                bool                                         `json:"DisableScaleIn,omitempty"`
	PredefinedMetricSpecification *ScalingPolicy_PredefinedMetricSpecification `json:"PredefinedMetricSpecification,omitempty"`
}

// ScalingPolicy_PredefinedMetricSpecification names a predefined ECS metric.
type ScalingPolicy_PredefinedMetricSpecification struct {
	PredefinedMetricType string `json:"PredefinedMetricType"`
}

// Predefined ECS service metrics.
const (
	ECSServiceAverageCPUUtilization    = "ECSServiceAverageCPUUtilization"
	ECSServiceAverageMemoryUtilization = "ECSServiceAverageMemoryUtilization"
)
