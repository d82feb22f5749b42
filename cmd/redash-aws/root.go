package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/awsclient"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/stack"
)

// newClients is replaced in tests.
var newClients = awsclient.New

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath  string
	stage       string
	vpcID       string
	region      string
	accountID   string
	image       string
	logLevel    string
	endpointURL string

	logOutput io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{logOutput: os.Stderr}

	root := &cobra.Command{
		Use:   "redash-aws",
		Short: "Deploy Redash on AWS with CloudFormation",
		Long: `redash-aws composes the CloudFormation template for a Redash deployment:
a VPC, an ECS Fargate cluster, a Postgres metadata database, a Redis queue,
generated secrets, a load-balanced web server and three autoscaled workers.

Configuration is read from redash.yaml when present and can be overridden
with flags:

    redash-aws build --stage prod --vpc-id vpc-0123456789abcdef0`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Configuration file (default: "+config.DefaultFile+" if present)")
	pf.StringVar(&opts.stage, "stage", "", "Stage name prefixing every resource name")
	pf.StringVar(&opts.vpcID, "vpc-id", "", "Existing VPC to deploy into")
	pf.StringVar(&opts.region, "region", "", "AWS region")
	pf.StringVar(&opts.accountID, "account-id", "", "Target AWS account")
	pf.StringVar(&opts.image, "image", "", "Redash container image")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.endpointURL, "endpoint-url", "", "AWS endpoint override for local emulators")

	root.AddCommand(
		newBuildCmd(opts),
		newListCmd(opts),
		newGraphCmd(opts),
		newValidateCmd(opts),
		newLintCmd(opts),
		newOptimizeCmd(opts),
		newDiffCmd(),
		newWatchCmd(opts),
		newRunCreateDBCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration file and applies flag overrides. An
// explicit --config must exist; the default file is optional.
func (o *globalOptions) loadConfig() (config.Config, error) {
	path := config.DefaultFile
	if o.configPath != "" {
		if _, err := os.Stat(o.configPath); err != nil {
			return config.Config{}, fmt.Errorf("config: %w", err)
		}
		path = o.configPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if o.stage != "" {
		cfg.StageName = o.stage
	}
	if o.vpcID != "" {
		cfg.VpcID = o.vpcID
	}
	if o.region != "" {
		cfg.Region = o.region
	}
	if o.accountID != "" {
		cfg.AccountID = o.accountID
	}
	if o.image != "" {
		cfg.RedashImage = o.image
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *globalOptions) logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	out := o.logOutput
	if out == nil {
		out = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out}).
		With().Timestamp().Str("service", "redash-aws").Logger().
		Level(level), nil
}

// setup loads the configuration and returns a context carrying the logger.
func (o *globalOptions) setup(ctx context.Context) (context.Context, config.Config, error) {
	logger, err := o.logger()
	if err != nil {
		return ctx, config.Config{}, err
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return ctx, config.Config{}, err
	}
	return logger.WithContext(ctx), cfg, nil
}

// compose builds the Redash stack for cfg. AWS is only contacted when the
// configuration names an existing VPC.
func (o *globalOptions) compose(ctx context.Context, cfg config.Config) (*stack.Redash, error) {
	var lookup network.Lookup
	if cfg.VpcID != "" {
		clients, err := newClients(ctx, cfg.Region, o.endpointURL)
		if err != nil {
			return nil, fmt.Errorf("creating AWS clients: %w", err)
		}
		lookup = &awsclient.VPCLookup{EC2: clients.EC2}
	}
	return stack.New(ctx, cfg, lookup, *zerolog.Ctx(ctx))
}

// buildTemplate loads the configuration and compiles the template.
func (o *globalOptions) buildTemplate(ctx context.Context) (*stack.Redash, *redash.Template, error) {
	ctx, cfg, err := o.setup(ctx)
	if err != nil {
		return nil, nil, err
	}
	r, err := o.compose(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	t, err := r.Template()
	if err != nil {
		return nil, nil, err
	}
	return r, t, nil
}
