// Package template holds the resource arena the providers register into and
// compiles it into a CloudFormation template.
//
// Resources are added under unique logical IDs. References between them
// (Ref, Fn::GetAtt, Fn::Sub variables) are discovered from the serialized
// properties and, together with explicit DependsOn edges, form the dependency
// graph that Build orders topologically.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/serialize"
	"github.com/lex00/redash-aws-go/intrinsics"
)

var (
	// ErrDuplicateLogicalID is returned when a logical ID is registered twice.
	ErrDuplicateLogicalID = errors.New("duplicate logical ID")

	// ErrInvalidLogicalID is returned for logical IDs CloudFormation rejects.
	ErrInvalidLogicalID = errors.New("invalid logical ID")

	// ErrUnknownReference is returned when a resource or output references a
	// logical ID that is not in the arena.
	ErrUnknownReference = errors.New("reference to unknown logical ID")

	// ErrCircularDependency is returned when the dependency graph has a cycle.
	ErrCircularDependency = errors.New("circular dependency detected")
)

var logicalIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)

// Handle identifies a resource registered in a Stack.
type Handle struct {
	LogicalID string
	Type      string
}

// Ref returns a Ref to the resource.
func (h Handle) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.LogicalID}
}

// GetAtt returns an Fn::GetAtt of the resource attribute.
func (h Handle) GetAtt(attr string) intrinsics.GetAtt {
	return intrinsics.GetAtt{LogicalName: h.LogicalID, Attribute: attr}
}

// Option customizes a resource registration.
type Option func(*entry)

// DependsOn adds explicit DependsOn edges to the resource.
func DependsOn(handles ...Handle) Option {
	return func(e *entry) {
		for _, h := range handles {
			e.dependsOn = append(e.dependsOn, h.LogicalID)
		}
	}
}

type entry struct {
	logicalID string
	typ       string
	props     map[string]any
	dependsOn []string
	refs      []string
}

// deps returns explicit and discovered dependencies, sorted and deduplicated.
func (e *entry) deps() []string {
	return uniqueSorted(append(append([]string{}, e.dependsOn...), e.refs...))
}

// ResourceInfo describes a registered resource for listing and graphing.
type ResourceInfo struct {
	LogicalID string
	Type      string
	DependsOn []string
}

// Stack is an arena of resources indexed by logical ID.
type Stack struct {
	description string
	entries     map[string]*entry
	order       []string
	outputs     map[string]redash.Output
	outputRefs  map[string][]string
	logger      zerolog.Logger
}

// NewStack creates an empty arena. The description becomes the template Description.
func NewStack(description string) *Stack {
	return &Stack{
		description: description,
		entries:     make(map[string]*entry),
		outputs:     make(map[string]redash.Output),
		outputRefs:  make(map[string][]string),
		logger:      zerolog.Nop(),
	}
}

// WithLogger sets the logger that records resource registrations.
func (s *Stack) WithLogger(logger zerolog.Logger) *Stack {
	s.logger = logger
	return s
}

// Add registers a resource under logicalID and returns its handle.
func (s *Stack) Add(logicalID string, r redash.Resource, opts ...Option) (Handle, error) {
	if !logicalIDPattern.MatchString(logicalID) {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidLogicalID, logicalID)
	}
	if _, exists := s.entries[logicalID]; exists {
		return Handle{}, fmt.Errorf("%w: %s", ErrDuplicateLogicalID, logicalID)
	}
	if _, exists := s.outputs[logicalID]; exists {
		return Handle{}, fmt.Errorf("%w: %s (already an output)", ErrDuplicateLogicalID, logicalID)
	}

	props, err := serialize.Resource(r)
	if err != nil {
		return Handle{}, fmt.Errorf("serializing %s: %w", logicalID, err)
	}

	e := &entry{
		logicalID: logicalID,
		typ:       r.ResourceType(),
		props:     props,
		refs:      References(props),
	}
	for _, opt := range opts {
		opt(e)
	}

	s.entries[logicalID] = e
	s.order = append(s.order, logicalID)
	s.logger.Debug().Str("logical_id", logicalID).Str("type", e.typ).Msg("registered resource")
	return Handle{LogicalID: logicalID, Type: e.typ}, nil
}

// AddOutput registers a template output.
func (s *Stack) AddOutput(id string, out redash.Output) error {
	if !logicalIDPattern.MatchString(id) {
		return fmt.Errorf("%w: output %q", ErrInvalidLogicalID, id)
	}
	if _, exists := s.outputs[id]; exists {
		return fmt.Errorf("%w: output %s", ErrDuplicateLogicalID, id)
	}
	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("%w: output %s (already a resource)", ErrDuplicateLogicalID, id)
	}

	value, err := serialize.Value(out.Value)
	if err != nil {
		return fmt.Errorf("serializing output %s: %w", id, err)
	}
	out.Value = value

	s.outputs[id] = out
	s.outputRefs[id] = References(value)
	return nil
}

// Get returns the handle of a registered resource.
func (s *Stack) Get(logicalID string) (Handle, bool) {
	e, ok := s.entries[logicalID]
	if !ok {
		return Handle{}, false
	}
	return Handle{LogicalID: e.logicalID, Type: e.typ}, true
}

// Len returns the number of registered resources.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Properties returns the serialized properties of a registered resource.
func (s *Stack) Properties(logicalID string) (map[string]any, bool) {
	e, ok := s.entries[logicalID]
	if !ok {
		return nil, false
	}
	return e.props, true
}

// Resources returns the registered resources in dependency order.
func (s *Stack) Resources() ([]ResourceInfo, error) {
	order, err := s.topologicalSort()
	if err != nil {
		return nil, err
	}

	infos := make([]ResourceInfo, 0, len(order))
	for _, id := range order {
		e := s.entries[id]
		infos = append(infos, ResourceInfo{LogicalID: id, Type: e.typ, DependsOn: e.deps()})
	}
	return infos, nil
}

// Build validates references, orders the resources and returns the template.
// No template is returned if any check fails.
func (s *Stack) Build() (*redash.Template, error) {
	if err := s.checkReferences(); err != nil {
		return nil, err
	}

	order, err := s.topologicalSort()
	if err != nil {
		return nil, err
	}

	tmpl := &redash.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              s.description,
		Resources:                make(map[string]redash.ResourceDef, len(order)),
	}

	for _, id := range order {
		e := s.entries[id]
		tmpl.Resources[id] = redash.ResourceDef{
			Type:       e.typ,
			Properties: e.props,
			DependsOn:  uniqueSorted(e.dependsOn),
		}
	}

	if len(s.outputs) > 0 {
		tmpl.Outputs = make(map[string]redash.Output, len(s.outputs))
		for id, out := range s.outputs {
			tmpl.Outputs[id] = out
		}
	}

	return tmpl, nil
}

func (s *Stack) checkReferences() error {
	for _, id := range s.order {
		for _, dep := range s.entries[id].deps() {
			if _, ok := s.entries[dep]; !ok {
				return fmt.Errorf("%w: %s references %s", ErrUnknownReference, id, dep)
			}
		}
	}

	ids := make([]string, 0, len(s.outputRefs))
	for id := range s.outputRefs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, dep := range s.outputRefs[id] {
			if _, ok := s.entries[dep]; !ok {
				return fmt.Errorf("%w: output %s references %s", ErrUnknownReference, id, dep)
			}
		}
	}
	return nil
}

// topologicalSort returns resources in dependency order.
func (s *Stack) topologicalSort() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range s.entries {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, e := range s.entries {
		for _, dep := range e.deps() {
			if _, exists := s.entries[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(s.entries) {
		return nil, s.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (s *Stack) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range s.entries[node].deps() {
			if _, exists := s.entries[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return ErrCircularDependency
	}

	parts := make([]string, len(cycle))
	for i, name := range cycle {
		parts[i] = fmt.Sprintf("%s (%s)", name, s.entries[name].typ)
	}
	return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(parts, " → "))
}

var subVarPattern = regexp.MustCompile(`\$\{([^}!][^}]*)\}`)

// References returns the logical IDs referenced by Ref, Fn::GetAtt and
// Fn::Sub inside a serialized value. Pseudo parameters are ignored, as are
// Fn::Sub variables bound by the substitution map.
func References(v any) []string {
	var refs []string
	collectRefs(v, &refs)
	return uniqueSorted(refs)
}

func collectRefs(v any, refs *[]string) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if name, ok := val["Ref"].(string); ok {
				addRef(refs, name)
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				switch ga := getAtt.(type) {
				case []any:
					if len(ga) > 0 {
						if name, ok := ga[0].(string); ok {
							addRef(refs, name)
						}
					}
				case []string:
					if len(ga) > 0 {
						addRef(refs, ga[0])
					}
				case string:
					addRef(refs, strings.SplitN(ga, ".", 2)[0])
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSubRefs(sub, refs)
				return
			}
		}
		for _, child := range val {
			collectRefs(child, refs)
		}
	case []any:
		for _, child := range val {
			collectRefs(child, refs)
		}
	}
}

func collectSubRefs(sub any, refs *[]string) {
	var (
		body string
		vars map[string]any
	)
	switch s := sub.(type) {
	case string:
		body = s
	case []any:
		if len(s) > 0 {
			body, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
		}
	}

	for _, m := range subVarPattern.FindAllStringSubmatch(body, -1) {
		name := strings.SplitN(m[1], ".", 2)[0]
		if _, bound := vars[name]; bound {
			continue
		}
		addRef(refs, name)
	}
	for _, value := range vars {
		collectRefs(value, refs)
	}
}

func addRef(refs *[]string, name string) {
	if name == "" || strings.Contains(name, "::") {
		return
	}
	*refs = append(*refs, name)
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the template to JSON.
func ToJSON(t *redash.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *redash.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
