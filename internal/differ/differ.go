// Package differ compares two rendered stacks resource by resource.
package differ

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"

	redash "github.com/lex00/redash-aws-go"
)

// OutputType is the entry type reported for template outputs.
const OutputType = "Output"

type Options struct {
	// IgnoreOrder treats lists as multisets.
	IgnoreOrder bool
}

type Result struct {
	Diff    redash.TemplateDiff
	Summary redash.DiffSummary
}

func (r *Result) Identical() bool { return r.Summary.Total == 0 }

// Compare reports added, removed and modified resources and outputs.
// Both sides are normalized through JSON first, so int64(4) in a freshly
// built template equals 4.0 read back from a file.
func Compare(before, after *redash.Template, opts Options) (*Result, error) {
	a, err := normalize(before)
	if err != nil {
		return nil, err
	}
	b, err := normalize(after)
	if err != nil {
		return nil, err
	}

	var d redash.TemplateDiff
	diffKeyed(&d, a.Resources, b.Resources,
		func(r redash.ResourceDef) string { return r.Type },
		func(x, y redash.ResourceDef) []string { return resourceChanges(x, y, opts) })
	diffKeyed(&d, a.Outputs, b.Outputs,
		func(redash.Output) string { return OutputType },
		func(x, y redash.Output) []string { return outputChanges(x, y, opts) })

	for _, entries := range [][]redash.DiffEntry{d.Added, d.Removed, d.Modified} {
		slices.SortFunc(entries, func(x, y redash.DiffEntry) int { return cmp.Compare(x.Resource, y.Resource) })
	}

	s := redash.DiffSummary{Added: len(d.Added), Removed: len(d.Removed), Modified: len(d.Modified)}
	s.Total = s.Added + s.Removed + s.Modified
	return &Result{Diff: d, Summary: s}, nil
}

// diffKeyed appends the entries for one top-level template section.
func diffKeyed[V any](d *redash.TemplateDiff, before, after map[string]V, typeOf func(V) string, changes func(V, V) []string) {
	for name, v := range after {
		if _, ok := before[name]; !ok {
			d.Added = append(d.Added, redash.DiffEntry{Resource: name, Type: typeOf(v)})
		}
	}
	for name, v := range before {
		w, ok := after[name]
		if !ok {
			d.Removed = append(d.Removed, redash.DiffEntry{Resource: name, Type: typeOf(v)})
			continue
		}
		if c := changes(v, w); len(c) > 0 {
			d.Modified = append(d.Modified, redash.DiffEntry{Resource: name, Type: typeOf(v), Changes: c})
		}
	}
}

func resourceChanges(x, y redash.ResourceDef, opts Options) []string {
	var changes []string
	if x.Type != y.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", x.Type, y.Type))
	}
	changes = append(changes, compareProperties(x.Properties, y.Properties, opts)...)
	if !slices.Equal(x.DependsOn, y.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	return changes
}

func outputChanges(x, y redash.Output, opts Options) []string {
	var changes []string
	if x.Description != y.Description {
		changes = append(changes, "Description modified")
	}
	if !equal(x.Value, y.Value, opts) {
		changes = append(changes, "Value modified")
	}
	return changes
}

// compareProperties lists top-level property keys that were added, removed or modified.
func compareProperties(before, after map[string]any, opts Options) []string {
	var changes []string
	for key, v := range after {
		old, ok := before[key]
		switch {
		case !ok:
			changes = append(changes, key+" added")
		case !equal(old, v, opts):
			changes = append(changes, key+" modified")
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			changes = append(changes, key+" removed")
		}
	}
	slices.Sort(changes)
	return changes
}

// CompareFiles loads both files and compares them.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	before, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}
	after, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}
	return Compare(before, after, opts)
}

// LoadTemplate reads a template rendered as JSON or YAML.
func LoadTemplate(path string) (*redash.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t redash.Template
	if jsonErr := json.Unmarshal(data, &t); jsonErr != nil {
		t = redash.Template{}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}
	return &t, nil
}

func normalize(t *redash.Template) (*redash.Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	var out redash.Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	return &out, nil
}

func equal(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a, b = canonical(a), canonical(b)
	}
	return reflect.DeepEqual(a, b)
}

// canonical sorts every nested list by the JSON encoding of its elements.
func canonical(v any) any {
	switch v := v.(type) {
	case []any:
		type keyed struct {
			key string
			val any
		}
		items := make([]keyed, len(v))
		for i, e := range v {
			c := canonical(e)
			data, _ := json.Marshal(c)
			items[i] = keyed{string(data), c}
		}
		slices.SortFunc(items, func(x, y keyed) int { return cmp.Compare(x.key, y.key) })
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = it.val
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = canonical(e)
		}
		return out
	default:
		return v
	}
}
