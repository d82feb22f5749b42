package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lex00/redash-aws-go/internal/operator"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployed state of the stage",
		Long: `Status reports the caller account, the stage network, whether each secret
exists and the desired and running task counts of every service. Secret values
are never read.

Exits 1 if the stage is not healthy.

Examples:
    redash-aws status
    redash-aws status --stage prod --format yaml`,
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

			report, err := operator.New(cfg, clients).Status(ctx)
			if err != nil {
				return err
			}
			if err := outputStatus(cmd.OutOrStdout(), report, outputFormat); err != nil {
				return err
			}
			if !report.Healthy() {
				return &exitError{code: 1, msg: "stage is not healthy"}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func outputStatus(w io.Writer, report *operator.Report, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(data))

	case "text":
		fmt.Fprintf(w, "Stage: %s (account %s)\n", report.Stage, report.Account)
		if report.VpcID != "" {
			fmt.Fprintf(w, "Network: %s\n", report.VpcID)
		} else {
			fmt.Fprintf(w, "Network: %s\n", report.Network)
		}

		fmt.Fprintln(w, "\nSecrets:")
		for _, s := range report.Secrets {
			state := "present"
			if !s.Exists {
				state = "MISSING"
			}
			fmt.Fprintf(w, "  %s: %s\n", s.Name, state)
		}

		fmt.Fprintln(w, "\nServices:")
		for _, s := range report.Services {
			if !s.Found {
				fmt.Fprintf(w, "  %s: not found\n", s.Name)
				continue
			}
			fmt.Fprintf(w, "  %s: %s %d/%d running", s.Name, s.Status, s.Running, s.Desired)
			if s.Pending > 0 {
				fmt.Fprintf(w, " (%d pending)", s.Pending)
			}
			fmt.Fprintln(w)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
