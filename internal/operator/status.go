package operator

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/rs/zerolog"

	"github.com/lex00/redash-aws-go/internal/secrets"
	"github.com/lex00/redash-aws-go/internal/stack"
)

// Services are the long-running services of a stage.
var Services = []string{stack.Server, stack.Scheduler, stack.ScheduledWorker, stack.AdhocWorker}

// SecretNames are the secrets a stage declares.
var SecretNames = []string{secrets.CookieSecretName, secrets.SecretKeyName, secrets.DatabaseURLName}

// ServiceStatus is the deployment state of one ECS service.
type ServiceStatus struct {
	Name    string `json:"name" yaml:"name"`
	Found   bool   `json:"found" yaml:"found"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
	Desired int32  `json:"desired" yaml:"desired"`
	Running int32  `json:"running" yaml:"running"`
	Pending int32  `json:"pending" yaml:"pending"`
}

// Healthy reports whether every desired task is running.
func (s ServiceStatus) Healthy() bool {
	return s.Found && s.Status == "ACTIVE" && s.Running >= s.Desired && s.Desired > 0
}

// SecretStatus records whether a secret exists.
type SecretStatus struct {
	Name   string `json:"name" yaml:"name"`
	Exists bool   `json:"exists" yaml:"exists"`
}

// Report is the read-only summary of a deployed stage.
type Report struct {
	Stage    string          `json:"stage" yaml:"stage"`
	Account  string          `json:"account" yaml:"account"`
	VpcID    string          `json:"vpc_id,omitempty" yaml:"vpc_id,omitempty"`
	Network  string          `json:"network" yaml:"network"`
	Secrets  []SecretStatus  `json:"secrets" yaml:"secrets"`
	Services []ServiceStatus `json:"services" yaml:"services"`
}

// Healthy reports whether the network resolved, every secret exists and every
// service runs its desired count.
func (r *Report) Healthy() bool {
	if r.VpcID == "" {
		return false
	}
	for _, s := range r.Secrets {
		if !s.Exists {
			return false
		}
	}
	for _, s := range r.Services {
		if !s.Healthy() {
			return false
		}
	}
	return true
}

// Status reads the deployed state of the stage. It never reads secret values.
// A network that cannot be resolved is reported, not returned as an error.
func (o *Operator) Status(ctx context.Context) (*Report, error) {
	account, err := o.verifyAccount(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{Stage: o.cfg.StageName, Account: account}

	if n, err := o.resolveNetwork(ctx); err != nil {
		report.Network = err.Error()
	} else {
		report.VpcID, _ = n.VpcID.(string)
		report.Network = "resolved"
	}

	for _, name := range SecretNames {
		exists, err := o.secretExists(ctx, o.names.Secret(name))
		if err != nil {
			return nil, err
		}
		report.Secrets = append(report.Secrets, SecretStatus{Name: o.names.Secret(name), Exists: exists})
	}

	services, err := o.serviceStatus(ctx)
	if err != nil {
		return nil, err
	}
	report.Services = services

	zerolog.Ctx(ctx).Debug().Bool("healthy", report.Healthy()).Msg("collected status")
	return report, nil
}

func (o *Operator) secretExists(ctx context.Context, name string) (bool, error) {
	_, err := o.clients.SecretsManager.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(name),
	})
	if err == nil {
		return true, nil
	}
	var notFound *smtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("describing secret %s: %w", name, err)
}

func (o *Operator) serviceStatus(ctx context.Context) ([]ServiceStatus, error) {
	names := make([]string, len(Services))
	for i, svc := range Services {
		names[i] = o.names.Service(svc)
	}

	out, err := o.clients.ECS.DescribeServices(ctx, &awsecs.DescribeServicesInput{
		Cluster:  aws.String(o.names.Cluster()),
		Services: names,
	})
	if err != nil {
		return nil, fmt.Errorf("describing services: %w", err)
	}

	found := make(map[string]ServiceStatus)
	for _, s := range out.Services {
		name := aws.ToString(s.ServiceName)
		found[name] = ServiceStatus{
			Name:    name,
			Found:   true,
			Status:  aws.ToString(s.Status),
			Desired: s.DesiredCount,
			Running: s.RunningCount,
			Pending: s.PendingCount,
		}
	}

	statuses := make([]ServiceStatus, len(names))
	for i, name := range names {
		if s, ok := found[name]; ok {
			statuses[i] = s
		} else {
			statuses[i] = ServiceStatus{Name: name}
		}
	}
	return statuses, nil
}
