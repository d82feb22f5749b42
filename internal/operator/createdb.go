package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/stack"
)

// Defaults for waiting on the create_db task.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultWaitTimeout  = 15 * time.Minute
)

// RunOptions configures RunCreateDB.
type RunOptions struct {
	// Wait blocks until the task stops and reports its exit code.
	Wait         bool
	PollInterval time.Duration
	Timeout      time.Duration
}

// RunResult describes a launched create_db task.
type RunResult struct {
	Account        string `json:"account"`
	Cluster        string `json:"cluster"`
	TaskDefinition string `json:"task_definition"`
	Subnet         string `json:"subnet"`
	TaskArn        string `json:"task_arn"`
	LastStatus     string `json:"last_status,omitempty"`
	StoppedReason  string `json:"stopped_reason,omitempty"`
	ExitCode       *int32 `json:"exit_code,omitempty"`
}

// Succeeded reports whether the task stopped with exit code 0.
func (r *RunResult) Succeeded() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}

// RunCreateDB launches the create_db task definition on Fargate in the first
// private subnet of the stage network. The database must already be available.
func (o *Operator) RunCreateDB(ctx context.Context, opts RunOptions) (*RunResult, error) {
	logger := zerolog.Ctx(ctx)

	account, err := o.verifyAccount(ctx)
	if err != nil {
		return nil, err
	}

	n, err := o.resolveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	if len(n.Private) == 0 {
		return nil, fmt.Errorf("%w: %s", network.ErrMissingTier, network.Private)
	}
	subnet, _ := n.Private[0].ID.(string)

	result := &RunResult{
		Account:        account,
		Cluster:        o.names.Cluster(),
		TaskDefinition: o.names.TaskFamily(stack.CreateDB),
		Subnet:         subnet,
	}

	logger.Info().
		Str("cluster", result.Cluster).
		Str("task_definition", result.TaskDefinition).
		Str("subnet", subnet).
		Msg("running create_db task")

	out, err := o.clients.ECS.RunTask(ctx, &awsecs.RunTaskInput{
		Cluster:        aws.String(result.Cluster),
		TaskDefinition: aws.String(result.TaskDefinition),
		LaunchType:     ecstypes.LaunchTypeFargate,
		Count:          aws.Int32(1),
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        []string{subnet},
				AssignPublicIp: ecstypes.AssignPublicIpDisabled,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run task: %w", err)
	}
	if len(out.Tasks) == 0 {
		msg := "no tasks launched"
		if len(out.Failures) > 0 {
			msg = aws.ToString(out.Failures[0].Reason)
		}
		return nil, fmt.Errorf("failed to launch task: %s", msg)
	}

	result.TaskArn = aws.ToString(out.Tasks[0].TaskArn)
	result.LastStatus = aws.ToString(out.Tasks[0].LastStatus)
	logger.Info().Str("task_arn", result.TaskArn).Msg("task started")

	if !opts.Wait {
		return result, nil
	}
	return result, o.waitForTaskStopped(ctx, result, opts)
}

// waitForTaskStopped polls the task until it stops and records its exit code.
func (o *Operator) waitForTaskStopped(ctx context.Context, result *RunResult, opts RunOptions) error {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	container := o.names.Container(stack.CreateDB)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", result.TaskArn, ctx.Err())
		case <-ticker.C:
			out, err := o.clients.ECS.DescribeTasks(ctx, &awsecs.DescribeTasksInput{
				Cluster: aws.String(result.Cluster),
				Tasks:   []string{result.TaskArn},
			})
			if err != nil {
				return fmt.Errorf("describing %s: %w", result.TaskArn, err)
			}
			if len(out.Tasks) == 0 {
				continue
			}

			task := out.Tasks[0]
			result.LastStatus = aws.ToString(task.LastStatus)
			zerolog.Ctx(ctx).Debug().Str("status", result.LastStatus).Msg("polled task")
			if result.LastStatus != "STOPPED" {
				continue
			}

			result.StoppedReason = aws.ToString(task.StoppedReason)
			for _, c := range task.Containers {
				if aws.ToString(c.Name) == container {
					result.ExitCode = c.ExitCode
				}
			}
			return nil
		}
	}
}
