package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/policy"
	"github.com/lex00/redash-aws-go/internal/stack"
)

func newLintCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		rules        []string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the template against deployment policy",
		Long: `Lint builds the template and checks it against the deployment's rules:

    RDA001  Secrets are never passed as container environment variables
    RDA002  Database and cache accept traffic only from the private tier
    RDA003  Outputs never reference secrets
    RDA004  One-off task definitions are not run by a service
    RDA005  Worker queue sets are disjoint
    RDA006  Autoscaling bounds and targets are consistent
    RDA007  Physical names are unique per resource type
    RDA008  The database is not publicly accessible

Exits 2 if any error-level issue is found.

Examples:
    redash-aws lint
    redash-aws lint --rules RDA001,RDA002 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := opts.buildTemplate(cmd.Context())
			if err != nil {
				return err
			}

			checkOpts := lintOptions(r)
			checkOpts.EnabledRules = rules
			checked := policy.Check(t, checkOpts)

			result := redash.LintResult{
				Success: checked.Success,
				Issues:  policy.LintIssues(checked.Issues),
			}
			if err := outputLintResult(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				return &exitError{code: 2, msg: "lint issues found"}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Rules to run (default: all)")

	return cmd
}

// lintOptions records the facts about r that the template does not carry.
func lintOptions(r *stack.Redash) policy.Options {
	opts := policy.Options{PrivateCIDRs: r.Network.CIDRs(network.Private)}
	if task, ok := r.Tasks[stack.CreateDB]; ok {
		opts.OneOffTasks = []string{task.Handle.LogicalID}
	}
	return opts
}

func outputLintResult(w io.Writer, result redash.LintResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "%s: %s [%s] %s\n", issue.Resource, issue.Severity, issue.Rule, issue.Message)
		}
		fmt.Fprintf(w, "\n%d issue(s) found.\n", len(result.Issues))

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
