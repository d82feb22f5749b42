package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lex00/redash-aws-go/internal/operator"
)

func newRunCreateDBCmd(opts *globalOptions) *cobra.Command {
	var (
		wait         bool
		pollInterval time.Duration
		timeout      time.Duration
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "run-create-db",
		Short: "Run the one-off task that creates the Redash tables",
		Long: `Run-create-db launches the create_db task definition on Fargate in the
stage's first private subnet. Run it once after the stack is deployed and the
database is available.

With --wait the command blocks until the task stops and exits 1 unless the
container exited 0.

Examples:
    redash-aws run-create-db
    redash-aws run-create-db --stage prod --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			clients, err := newClients(ctx, cfg.Region, opts.endpointURL)
			if err != nil {
				return fmt.Errorf("creating AWS clients: %w", err)
			}

			result, err := operator.New(cfg, clients).RunCreateDB(ctx, operator.RunOptions{
				Wait:         wait,
				PollInterval: pollInterval,
				Timeout:      timeout,
			})
			if err != nil {
				return err
			}
			if err := outputRunResult(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if wait && !result.Succeeded() {
				return &exitError{code: 1, msg: "create_db failed"}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the task to stop")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", operator.DefaultPollInterval, "Task status polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", operator.DefaultWaitTimeout, "Maximum time to wait")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputRunResult(w io.Writer, result *operator.RunResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		fmt.Fprintf(w, "Task: %s\n", result.TaskArn)
		fmt.Fprintf(w, "Cluster: %s\n", result.Cluster)
		fmt.Fprintf(w, "Task definition: %s\n", result.TaskDefinition)
		fmt.Fprintf(w, "Subnet: %s\n", result.Subnet)
		if result.ExitCode != nil {
			fmt.Fprintf(w, "Exit code: %d (%s)\n", *result.ExitCode, result.StoppedReason)
		} else if result.LastStatus != "" {
			fmt.Fprintf(w, "Status: %s\n", result.LastStatus)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
