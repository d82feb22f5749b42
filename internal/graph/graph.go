// Package graph generates DOT and Mermaid dependency graphs from compiled templates.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeOutputs adds output nodes and their references.
	IncludeOutputs bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph of t and writes it to w.
func (g *Generator) Generate(t *redash.Template, w io.Writer) error {
	graph := g.buildGraph(t)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(t *redash.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(t, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure. Edges point from a resource to
// the resources it needs: blue for attribute references, dashed for explicit
// DependsOn.
func (g *Generator) buildGraph(t *redash.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	if g.ClusterByType {
		g.addClusteredNodes(graph, t, names)
	} else {
		for _, name := range names {
			graph.Node(name).Label(name + "\\n[" + t.Resources[name].Type + "]")
		}
	}

	for _, name := range names {
		res := t.Resources[name]
		getAtts := getAttTargets(res.Properties)
		explicit := make(map[string]bool, len(res.DependsOn))
		for _, dep := range res.DependsOn {
			explicit[dep] = true
		}

		deps := append(template.References(res.Properties), res.DependsOn...)
		seen := make(map[string]bool)
		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if _, ok := t.Resources[dep]; !ok {
				continue
			}
			e := graph.Edge(graph.Node(name), graph.Node(dep))
			switch {
			case getAtts[dep]:
				e.Attr("color", "blue")
			case explicit[dep]:
				e.Attr("style", "dashed")
			}
		}
	}

	if g.IncludeOutputs {
		outputs := make([]string, 0, len(t.Outputs))
		for name := range t.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)
		for _, name := range outputs {
			n := graph.Node("output:" + name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
			for _, dep := range template.References(t.Outputs[name].Value) {
				if _, ok := t.Resources[dep]; ok {
					graph.Edge(n, graph.Node(dep))
				}
			}
		}
	}

	return graph
}

// getAttTargets returns the logical IDs v reads attributes of.
func getAttTargets(v any) map[string]bool {
	targets := make(map[string]bool)
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if ga, ok := val["Fn::GetAtt"]; ok {
				switch args := ga.(type) {
				case []any:
					if len(args) > 0 {
						if id, ok := args[0].(string); ok {
							targets[id] = true
						}
					}
				case string:
					targets[strings.SplitN(args, ".", 2)[0]] = true
				}
			}
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)
	return targets
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, t *redash.Template, names []string) {
	byService := make(map[string][]string)
	var services []string
	for _, name := range names {
		service := extractService(t.Resources[name].Type)
		if _, ok := byService[service]; !ok {
			services = append(services, service)
		}
		byService[service] = append(byService[service], name)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		parent := graph
		if len(members) > 1 {
			parent = graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			parent.Attr("label", service)
			parent.Attr("style", "rounded")
			parent.Attr("bgcolor", "lightyellow")
		}
		for _, name := range members {
			parent.Node(name).Label(name + "\\n[" + t.Resources[name].Type + "]")
		}
	}
}

// extractService extracts the AWS service from a CloudFormation type.
// e.g., "AWS::ECS::Service" -> "ECS"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
