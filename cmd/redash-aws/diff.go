package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/differ"
)

func newDiffCmd() *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> <template2>",
		Short: "Compare two CloudFormation templates semantically",
		Long: `Diff compares two templates (JSON or YAML) resource by resource and output
by output. Numbers compare by value, so a JSON build equals its YAML build.

Examples:
    redash-aws diff before.json after.json
    redash-aws diff before.yaml after.json --ignore-order
    redash-aws diff a.json b.json --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := differ.CompareFiles(args[0], args[1], differ.Options{IgnoreOrder: ignoreOrder})
			if err != nil {
				return err
			}
			result := redash.DiffResult{Success: true, Diff: res.Diff, Summary: res.Summary}
			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")

	return cmd
}

func outputDiffResult(w io.Writer, result redash.DiffResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Summary.Total == 0 {
			fmt.Fprintln(w, "Templates are identical.")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, change := range e.Changes {
				fmt.Fprintf(w, "    %s\n", change)
			}
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
