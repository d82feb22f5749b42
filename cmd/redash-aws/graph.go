package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/redash-aws-go/internal/graph"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat   string
		includeOutputs bool
		clusterByType  bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    redash-aws graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    redash-aws graph -f mermaid

Examples:
    redash-aws graph
    redash-aws graph -o              # include outputs
    redash-aws graph -c              # cluster by service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphFormat graph.Format
			switch outputFormat {
			case "dot":
				graphFormat = graph.FormatDOT
			case "mermaid":
				graphFormat = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			_, t, err := opts.buildTemplate(cmd.Context())
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:         graphFormat,
				IncludeOutputs: includeOutputs,
				ClusterByType:  clusterByType,
			}
			return gen.Generate(t, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeOutputs, "include-outputs", "o", false, "Include output nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service type")

	return cmd
}
