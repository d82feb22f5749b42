// Package config holds the stage configuration every provider reads.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/google/go-containerregistry/pkg/name"
	"gopkg.in/yaml.v3"
)

// Defaults for a configuration with no file.
const (
	DefaultStageName   = "dev"
	DefaultRegion      = "us-east-1"
	DefaultRedashImage = "redash/redash:10.1.0.b50633"
)

// DefaultFile is the configuration file the CLI reads when --config is not set.
const DefaultFile = "redash.yaml"

var (
	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = errors.New("invalid config")

	stagePattern   = regexp.MustCompile(`^[a-z][a-z0-9-]{0,19}$`)
	accountPattern = regexp.MustCompile(`^[0-9]{12}$`)
	vpcPattern     = regexp.MustCompile(`^vpc-[0-9a-f]{8,17}$`)
)

// Config is the stage configuration.
type Config struct {
	// StageName prefixes every physical name.
	StageName string `yaml:"stageName"`

	// VpcID selects an existing network. Empty means create one.
	VpcID string `yaml:"vpcId,omitempty"`

	// AccountID is the target account. It may be empty for synthesis only.
	AccountID string `yaml:"accountId,omitempty"`

	Region      string `yaml:"region"`
	RedashImage string `yaml:"redashImage"`

	// CreateRepository adds an ECR repository for custom Redash images.
	CreateRepository bool `yaml:"createRepository,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = DefaultRegion
	}
	return Config{
		StageName:   DefaultStageName,
		Region:      region,
		RedashImage: DefaultRedashImage,
	}
}

// Load reads a YAML configuration file over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err = Parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(content []byte) (Config, error) {
	cfg := Default()

	if len(bytes.TrimSpace(content)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if !stagePattern.MatchString(c.StageName) {
		return fmt.Errorf("%w: stageName %q must match %s", ErrInvalidConfig, c.StageName, stagePattern)
	}
	if c.AccountID != "" && !accountPattern.MatchString(c.AccountID) {
		return fmt.Errorf("%w: accountId %q must be 12 digits", ErrInvalidConfig, c.AccountID)
	}
	if c.VpcID != "" && !vpcPattern.MatchString(c.VpcID) {
		return fmt.Errorf("%w: vpcId %q is not a VPC ID", ErrInvalidConfig, c.VpcID)
	}
	if c.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidConfig)
	}
	if _, err := name.ParseReference(c.RedashImage); err != nil {
		return fmt.Errorf("%w: redashImage: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ImageRepository returns the repository part of RedashImage, e.g. "redash/redash".
func (c Config) ImageRepository() string {
	ref, err := name.ParseReference(c.RedashImage)
	if err != nil {
		return ""
	}
	return ref.Context().RepositoryStr()
}

// Marshal encodes the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
