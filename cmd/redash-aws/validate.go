package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/validation"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		dir          string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the template with cfn-lint",
		Long: `Validate builds the template, writes it as YAML and runs cfn-lint rules over it.

Exits 1 if any error-level finding is reported.

Examples:
    redash-aws validate
    redash-aws validate --dir ./out --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, t, err := opts.buildTemplate(cmd.Context())
			if err != nil {
				return err
			}
			result, err := validation.Template(t, dir)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			if err := outputValidateResult(cmd.OutOrStdout(), *result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				return &exitError{code: 1, msg: "validation failed"}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to write template.yaml into (default: temporary)")

	return cmd
}

func outputValidateResult(w io.Writer, result redash.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		for _, e := range result.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
		if result.Success {
			fmt.Fprintf(w, "Template valid (%d resources).\n", result.Resources)
		} else {
			fmt.Fprintf(w, "Template invalid: %d error(s).\n", len(result.Errors))
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
