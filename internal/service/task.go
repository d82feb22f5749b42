// Package service declares Fargate task definitions and the services that run them.
package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/ecs"
	"github.com/lex00/redash-aws-go/resources/iam"
	"github.com/lex00/redash-aws-go/resources/logs"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid service parameters")

// fargateCPU lists the CPU units Fargate accepts.
var fargateCPU = map[int]bool{256: true, 512: true, 1024: true, 2048: true, 4096: true, 8192: true, 16384: true}

// SecretRef is anything that resolves to a secret ARN.
type SecretRef interface {
	Ref() intrinsics.Ref
}

// TaskParams configures a task definition with a single container.
type TaskParams struct {
	ServiceName string
	Image       string
	Command     []string
	CPU         int
	MemoryMiB   int

	// Port is the container port to expose. Zero exposes none.
	Port int

	// Environment values are strings or intrinsics.
	Environment map[string]any

	// Secrets are injected by ECS from the referenced secret at task start.
	Secrets map[string]SecretRef
}

func (p TaskParams) validate() error {
	if p.ServiceName == "" {
		return fmt.Errorf("%w: service name is required", ErrInvalidParams)
	}
	if p.Image == "" {
		return fmt.Errorf("%w: %s: image is required", ErrInvalidParams, p.ServiceName)
	}
	if !fargateCPU[p.CPU] {
		return fmt.Errorf("%w: %s: %d is not a Fargate CPU value", ErrInvalidParams, p.ServiceName, p.CPU)
	}
	if p.MemoryMiB < p.CPU/512*1024 || p.MemoryMiB <= 0 {
		return fmt.Errorf("%w: %s: %d MiB is too little memory for %d CPU units", ErrInvalidParams, p.ServiceName, p.MemoryMiB, p.CPU)
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("%w: %s: port %d out of range", ErrInvalidParams, p.ServiceName, p.Port)
	}
	for name := range p.Secrets {
		if _, dup := p.Environment[name]; dup {
			return fmt.Errorf("%w: %s: %s is both an environment variable and a secret", ErrInvalidParams, p.ServiceName, name)
		}
	}
	return nil
}

// Task is a declared task definition.
type Task struct {
	ServiceName   string
	Family        string
	ContainerName string
	Port          int
	Handle        template.Handle
	ExecutionRole template.Handle
	LogGroup      template.Handle
}

// Arn returns the task definition ARN.
func (t *Task) Arn() intrinsics.Ref { return t.Handle.Ref() }

// DefineTask declares a Fargate task definition with one container, its
// execution role and its log group.
func DefineTask(cfg config.Config, stack *template.Stack, p TaskParams) (*Task, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	names := naming.New(cfg.StageName)
	svc := p.ServiceName

	logGroup, err := stack.Add(names.Logical(svc, "log-group"), &logs.LogGroup{
		LogGroupName:    names.LogGroup(svc),
		RetentionInDays: logs.OneWeek,
	})
	if err != nil {
		return nil, err
	}

	secretNames := sortedKeys(p.Secrets)
	secretArns := make([]any, 0, len(secretNames))
	containerSecrets := make([]ecs.TaskDefinition_Secret, 0, len(secretNames))
	for _, name := range secretNames {
		arn := p.Secrets[name].Ref()
		secretArns = append(secretArns, arn)
		containerSecrets = append(containerSecrets, ecs.TaskDefinition_Secret{Name: name, ValueFrom: arn})
	}

	role := &iam.Role{
		AssumeRolePolicyDocument: intrinsics.AssumeRolePolicy("ecs-tasks.amazonaws.com"),
		ManagedPolicyArns: []any{
			intrinsics.ManagedPolicyArn("service-role/AmazonECSTaskExecutionRolePolicy"),
		},
		Tags: intrinsics.Tags("Stage", cfg.StageName),
	}
	if len(secretArns) > 0 {
		role.Policies = []iam.Role_Policy{{
			PolicyName:     "read-secrets",
			PolicyDocument: intrinsics.SecretReadPolicy(secretArns),
		}}
	}
	executionRole, err := stack.Add(naming.LogicalID(names.ExecutionRole(svc)), role)
	if err != nil {
		return nil, err
	}

	envNames := sortedKeys(p.Environment)
	env := make([]ecs.TaskDefinition_KeyValuePair, 0, len(envNames))
	for _, name := range envNames {
		env = append(env, ecs.TaskDefinition_KeyValuePair{Name: name, Value: p.Environment[name]})
	}

	container := ecs.TaskDefinition_ContainerDefinition{
		Name:        names.Container(svc),
		Image:       p.Image,
		Essential:   true,
		Command:     p.Command,
		Environment: env,
		Secrets:     containerSecrets,
		LogConfiguration: &ecs.TaskDefinition_LogConfiguration{
			LogDriver: "awslogs",
			Options: map[string]any{
				"awslogs-group":         logGroup.Ref(),
				"awslogs-region":        intrinsics.AWS_REGION,
				"awslogs-stream-prefix": names.LogStreamPrefix(svc),
			},
		},
	}
	if p.Port != 0 {
		container.PortMappings = []ecs.TaskDefinition_PortMapping{{ContainerPort: p.Port, Protocol: "tcp"}}
	}

	family := names.TaskFamily(svc)
	h, err := stack.Add(naming.LogicalID(family), &ecs.TaskDefinition{
		Family:                  family,
		Cpu:                     fmt.Sprint(p.CPU),
		Memory:                  fmt.Sprint(p.MemoryMiB),
		NetworkMode:             "awsvpc",
		RequiresCompatibilities: []string{"FARGATE"},
		ExecutionRoleArn:        executionRole.GetAtt("Arn"),
		ContainerDefinitions:    []ecs.TaskDefinition_ContainerDefinition{container},
		Tags:                    intrinsics.Tags("Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}

	return &Task{
		ServiceName:   svc,
		Family:        family,
		ContainerName: container.Name,
		Port:          p.Port,
		Handle:        h,
		ExecutionRole: executionRole,
		LogGroup:      logGroup,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
