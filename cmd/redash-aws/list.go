package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stack's resources",
		Long: `List displays every resource of the composed stack in dependency order.

Examples:
    redash-aws list
    redash-aws list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := opts.buildTemplate(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := r.Stack.Resources()
			if err != nil {
				return err
			}

			result := redash.ListResult{Resources: make([]redash.ListResource, 0, len(infos))}
			for _, info := range infos {
				result.Resources = append(result.Resources, redash.ListResource{
					Name:      info.LogicalID,
					Type:      info.Type,
					DependsOn: info.DependsOn,
				})
			}
			return outputListResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputListResult(w io.Writer, result redash.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			if len(res.DependsOn) > 0 {
				fmt.Fprintf(w, "  %s: %s (depends on %s)\n", res.Name, res.Type, strings.Join(res.DependsOn, ", "))
				continue
			}
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
