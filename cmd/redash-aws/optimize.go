package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/optimizer"
)

// newOptimizeCmd creates the "optimize" subcommand for suggesting improvements.
func newOptimizeCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		category     string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest improvements to the stack",
		Long: `Optimize analyzes the composed template and suggests improvements
for security, cost, performance, and reliability.

Categories:
    security     - Transport encryption and exposure
    cost         - Log retention and idle capacity
    performance  - Cluster metrics
    reliability  - Multi-AZ database, backups, NAT and Redis redundancy

Examples:
    redash-aws optimize
    redash-aws optimize --category reliability
    redash-aws optimize -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !optimizer.ValidCategory(category) {
				return fmt.Errorf("invalid category: %s (valid: all, %s)", category, strings.Join(optimizer.Categories, ", "))
			}

			_, t, err := opts.buildTemplate(cmd.Context())
			if err != nil {
				return err
			}
			optResult, err := optimizer.Optimize(t, optimizer.Options{Category: category})
			if err != nil {
				return fmt.Errorf("optimize failed: %w", err)
			}

			result := redash.OptimizeResult{
				Success:       true,
				Suggestions:   optResult.Suggestions,
				ResourceCount: len(t.Resources),
				Summary:       optResult.Summary,
			}
			return outputOptimizeResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVarP(&category, "category", "c", "all", "Category: all, security, cost, performance, or reliability")

	return cmd
}

func outputOptimizeResult(w io.Writer, result redash.OptimizeResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Suggestions) == 0 {
			fmt.Fprintf(w, "Analyzed %d resources. No optimization suggestions.\n", result.ResourceCount)
			return nil
		}

		fmt.Fprintf(w, "Analyzed %d resources. Found %d suggestions:\n\n", result.ResourceCount, result.Summary.Total)

		byCat := map[string][]redash.OptimizeSuggestion{}
		for _, s := range result.Suggestions {
			byCat[s.Category] = append(byCat[s.Category], s)
		}

		for _, cat := range optimizer.Categories {
			suggestions := byCat[cat]
			if len(suggestions) == 0 {
				continue
			}

			fmt.Fprintf(w, "=== %s (%d) ===\n", strings.ToUpper(cat[:1])+cat[1:], len(suggestions))
			for _, s := range suggestions {
				fmt.Fprintf(w, "\n[%s] %s (%s)\n", s.Severity, s.Title, s.Rule)
				fmt.Fprintf(w, "  Resource: %s\n", s.Resource)
				fmt.Fprintf(w, "  %s\n", s.Description)
				fmt.Fprintf(w, "  Suggestion: %s\n", s.Suggestion)
			}
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "Summary: %d security, %d cost, %d performance, %d reliability\n",
			result.Summary.Security, result.Summary.Cost,
			result.Summary.Performance, result.Summary.Reliability)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
