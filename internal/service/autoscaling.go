package service

import (
	"fmt"
	"time"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/applicationautoscaling"
)

// AutoscalingParams adds target-tracking scaling to a private service.
type AutoscalingParams struct {
	ServiceParams

	MaxCapacity int

	CPUTargetPercent    float64
	CPUScaleIn          time.Duration
	CPUScaleOut         time.Duration
	MemoryTargetPercent float64
	MemoryScaleIn       time.Duration
	MemoryScaleOut      time.Duration
}

// DefaultAutoscaling is the scaling configuration of the Redash workers.
func DefaultAutoscaling(p ServiceParams) AutoscalingParams {
	return AutoscalingParams{
		ServiceParams:       p,
		MaxCapacity:         4,
		CPUTargetPercent:    80,
		CPUScaleIn:          10 * time.Second,
		CPUScaleOut:         60 * time.Second,
		MemoryTargetPercent: 80,
		MemoryScaleIn:       10 * time.Second,
		MemoryScaleOut:      20 * time.Second,
	}
}

func (p AutoscalingParams) validate() error {
	if err := p.ServiceParams.validate(); err != nil {
		return err
	}
	svc := p.Task.ServiceName
	if p.DesiredCount > p.MaxCapacity {
		return fmt.Errorf("%w: %s: desired count %d exceeds max capacity %d", ErrInvalidParams, svc, p.DesiredCount, p.MaxCapacity)
	}
	for _, target := range []float64{p.CPUTargetPercent, p.MemoryTargetPercent} {
		if target <= 0 || target > 100 {
			return fmt.Errorf("%w: %s: target %.1f%% outside (0, 100]", ErrInvalidParams, svc, target)
		}
	}
	for _, d := range []time.Duration{p.CPUScaleIn, p.CPUScaleOut, p.MemoryScaleIn, p.MemoryScaleOut} {
		if d < 0 {
			return fmt.Errorf("%w: %s: negative cooldown %s", ErrInvalidParams, svc, d)
		}
	}
	return nil
}

// AutoscalingService is a private service with a scalable target and one
// target-tracking policy per metric.
type AutoscalingService struct {
	*Service
	MaxCapacity    int
	ScalableTarget template.Handle
	CPUPolicy      template.Handle
	MemoryPolicy   template.Handle
}

// DeployAutoscaled declares a private service that scales between its desired
// count and p.MaxCapacity on CPU and memory utilization.
func DeployAutoscaled(cfg config.Config, stack *template.Stack, p AutoscalingParams) (*AutoscalingService, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	service, err := deploy(cfg, stack, p.ServiceParams, nil)
	if err != nil {
		return nil, err
	}

	names := naming.New(cfg.StageName)
	svc := p.Task.ServiceName

	target, err := stack.Add(names.Logical(svc, "scalable-target"), &applicationautoscaling.ScalableTarget{
		MinCapacity: p.DesiredCount,
		MaxCapacity: p.MaxCapacity,
		ResourceId: intrinsics.SubWithMap{
			String: "service/${Cluster}/${Service}",
			Variables: map[string]any{
				"Cluster": p.Cluster.Ref(),
				"Service": service.Handle.GetAtt("Name"),
			},
		},
		ScalableDimension: "ecs:service:DesiredCount",
		ServiceNamespace:  "ecs",
	})
	if err != nil {
		return nil, err
	}

	addPolicy := func(metric, metricType string, targetValue float64, in, out time.Duration) (template.Handle, error) {
		name := names.ScalingPolicy(svc, metric)
		return stack.Add(naming.LogicalID(name), &applicationautoscaling.ScalingPolicy{
			PolicyName:      name,
			PolicyType:      "TargetTrackingScaling",
			ScalingTargetId: target.Ref(),
			TargetTrackingScalingPolicyConfiguration: &applicationautoscaling.ScalingPolicy_TargetTrackingScalingPolicyConfiguration{
				TargetValue:      targetValue,
				ScaleInCooldown:  int(in / time.Second),
				ScaleOutCooldown: int(out / time.Second),
				PredefinedMetricSpecification: &applicationautoscaling.ScalingPolicy_PredefinedMetricSpecification{
					PredefinedMetricType: metricType,
				},
			},
		})
	}

	cpu, err := addPolicy("cpu", applicationautoscaling.ECSServiceAverageCPUUtilization,
		p.CPUTargetPercent, p.CPUScaleIn, p.CPUScaleOut)
	if err != nil {
		return nil, err
	}
	memory, err := addPolicy("memory", applicationautoscaling.ECSServiceAverageMemoryUtilization,
		p.MemoryTargetPercent, p.MemoryScaleIn, p.MemoryScaleOut)
	if err != nil {
		return nil, err
	}

	return &AutoscalingService{
		Service:        service,
		MaxCapacity:    p.MaxCapacity,
		ScalableTarget: target,
		CPUPolicy:      cpu,
		MemoryPolicy:   memory,
	}, nil
}
