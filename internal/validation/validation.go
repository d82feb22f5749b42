// Package validation checks rendered Redash templates against the
// CloudFormation resource schemas with cfn-lint-go.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/template"
)

// TemplateFile is the name Template writes the rendered stack to.
const TemplateFile = "template.yaml"

// Report buckets cfn-lint findings by level.
type Report struct {
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// Passed is true when nothing at error level was found.
func (r *Report) Passed() bool { return len(r.Errors) == 0 }

func (r *Report) Issues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

func (r *Report) add(m lint.Match) {
	msg := describe(m)
	switch m.Level {
	case "Error":
		r.Errors = append(r.Errors, msg)
	case "Warning":
		r.Warnings = append(r.Warnings, msg)
	default:
		r.Informational = append(r.Informational, msg)
	}
}

// LintFile lints a template on disk. A missing or unparsable file becomes
// an error-level finding in the report.
func LintFile(path string) *Report {
	r := &Report{Errors: []string{}, Warnings: []string{}, Informational: []string{}}
	if _, err := os.Stat(path); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("Template file not found: %s", path))
		return r
	}
	matches, err := lint.New(lint.Options{}).LintFile(path)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("Linter error: %v", err))
		return r
	}
	for _, m := range matches {
		r.add(m)
	}
	return r
}

// describe renders a match as "RULE: message (at Resources/Name/Prop)".
func describe(m lint.Match) string {
	msg := m.Rule.ID + ": " + m.Message
	if len(m.Location.Path) == 0 {
		return msg
	}
	segments := make([]string, 0, len(m.Location.Path))
	for _, p := range m.Location.Path {
		segments = append(segments, fmt.Sprint(p))
	}
	return msg + " (at " + strings.Join(segments, "/") + ")"
}

// Template renders t to dir/template.yaml and lints it. When dir is empty
// a scratch directory is used and removed afterwards.
func Template(t *redash.Template, dir string) (*redash.ValidateResult, error) {
	data, err := template.ToYAML(t)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}
	if dir == "" {
		scratch, err := os.MkdirTemp("", "redash-aws-validate-")
		if err != nil {
			return nil, fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(scratch)
		dir = scratch
	}
	path := filepath.Join(dir, TemplateFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	report := LintFile(path)
	return &redash.ValidateResult{
		Success:   report.Passed(),
		Resources: len(t.Resources),
		Errors:    report.Errors,
		Warnings:  append(report.Warnings, report.Informational...),
	}, nil
}
