// Package secrets declares Secrets Manager secrets for the Redash containers.
//
// Secret values never pass through this process: generated secrets are
// produced by Secrets Manager, and derived secrets are assembled by
// CloudFormation from dynamic references at deploy time. Containers receive
// the secret ARN and ECS resolves the value when the task starts.
package secrets

import (
	"errors"
	"fmt"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
	"github.com/lex00/redash-aws-go/resources/secretsmanager"
)

// PasswordLength is the length of generated secret values.
const PasswordLength = 32

// Secret names.
const (
	CookieSecretName = "cookie-secret"
	SecretKeyName    = "secret"
	DatabaseURLName  = "database-url"
)

// ErrEmptyTemplate is returned by Compose for an empty template string.
var ErrEmptyTemplate = errors.New("secret template is empty")

// Entry is a declared secret.
type Entry struct {
	Name   string
	Handle template.Handle
}

// Ref returns the secret ARN. It is the only form in which a secret is handed
// to a task definition.
func (e *Entry) Ref() intrinsics.Ref {
	return e.Handle.Ref()
}

// Generate declares a secret named <stage>-redash-<name>-secret whose value is
// generated by Secrets Manager.
func Generate(cfg config.Config, stack *template.Stack, name string) (*Entry, error) {
	physical := naming.New(cfg.StageName).Secret(name)

	h, err := stack.Add(naming.LogicalID(physical), &secretsmanager.Secret{
		Name: physical,
		GenerateSecretString: &secretsmanager.Secret_GenerateSecretString{
			PasswordLength: PasswordLength,
		},
		Tags: intrinsics.Tags("Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}
	return &Entry{Name: physical, Handle: h}, nil
}

// Compose declares a secret whose value is the Fn::Sub of tmpl over parts.
// Parts are resource attributes or dynamic references, so the plaintext is
// only ever assembled by CloudFormation.
func Compose(cfg config.Config, stack *template.Stack, name, tmpl string, parts map[string]any) (*Entry, error) {
	if tmpl == "" {
		return nil, fmt.Errorf("composing %s: %w", name, ErrEmptyTemplate)
	}
	physical := naming.New(cfg.StageName).Secret(name)

	var value any = intrinsics.Sub{String: tmpl}
	if len(parts) > 0 {
		value = intrinsics.SubWithMap{String: tmpl, Variables: parts}
	}

	h, err := stack.Add(naming.LogicalID(physical), &secretsmanager.Secret{
		Name:         physical,
		Description:  "Derived from other secrets at deploy time",
		SecretString: value,
		Tags:         intrinsics.Tags("Stage", cfg.StageName),
	})
	if err != nil {
		return nil, err
	}
	return &Entry{Name: physical, Handle: h}, nil
}

// Endpoint is the part of a database instance the connection URL is built from.
type Endpoint interface {
	Address() intrinsics.GetAtt
	Port() intrinsics.GetAtt
	CredentialSecretArn() intrinsics.GetAtt
}

// DatabaseURLTemplate is the Fn::Sub body of the database URL secret.
var DatabaseURLTemplate = "postgresql://" +
	intrinsics.ResolveSecret("${CredentialSecret}", "username") + ":" +
	intrinsics.ResolveSecret("${CredentialSecret}", "password") +
	"@${Address}:${Port}/redash"

// DatabaseURL declares the database URL secret
// postgresql://<user>:<password>@<address>:<port>/redash.
func DatabaseURL(cfg config.Config, stack *template.Stack, db Endpoint) (*Entry, error) {
	return Compose(cfg, stack, DatabaseURLName, DatabaseURLTemplate, map[string]any{
		"CredentialSecret": db.CredentialSecretArn(),
		"Address":          db.Address(),
		"Port":             db.Port(),
	})
}
