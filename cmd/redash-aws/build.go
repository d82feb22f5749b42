package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/template"
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build composes the Redash stack for the configured stage and writes the
CloudFormation template. Nothing is written if any resource fails to compose.

Examples:
    redash-aws build
    redash-aws build -o template.json
    redash-aws build --stage prod --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, t, err := opts.buildTemplate(cmd.Context())
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			return writeTemplate(cmd.OutOrStdout(), t, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// encodeTemplate renders t as JSON or YAML.
func encodeTemplate(t *redash.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(t)
	case "yaml":
		return template.ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format: %s (use 'json' or 'yaml')", format)
	}
}

func writeTemplate(w io.Writer, t *redash.Template, format, outputFile string) error {
	data, err := encodeTemplate(t, format)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(w, "Wrote %s (%d resources)\n", outputFile, len(t.Resources))
		return nil
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
