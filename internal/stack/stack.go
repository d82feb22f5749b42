// Package stack composes the Redash deployment from the providers.
//
// New runs a single linear pass: network, cluster, database, cache, secrets,
// task definitions, services and outputs. Every resource is registered in one
// template arena, which Template compiles.
package stack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	redash "github.com/lex00/redash-aws-go"
	"github.com/lex00/redash-aws-go/internal/cache"
	"github.com/lex00/redash-aws-go/internal/cluster"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/database"
	"github.com/lex00/redash-aws-go/internal/naming"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/registry"
	"github.com/lex00/redash-aws-go/internal/secrets"
	"github.com/lex00/redash-aws-go/internal/service"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
)

// Task sizing shared by every Redash container.
const (
	TaskCPU       = 1024
	TaskMemoryMiB = 2048
)

// Service names.
const (
	Server          = "server"
	Scheduler       = "scheduler"
	ScheduledWorker = "scheduled_worker"
	AdhocWorker     = "adhoc_worker"
	CreateDB        = "create_db"
)

// ServerPort is the port the Redash web server listens on.
const ServerPort = 5000

// ServerWebWorkers is the number of gunicorn workers in the server container.
const ServerWebWorkers = "4"

// Worker describes one autoscaled background service.
type Worker struct {
	Name    string
	Command string
	Queues  string
	Workers string
}

// Workers are the background services in declaration order.
var Workers = []Worker{
	{Name: Scheduler, Command: "scheduler", Queues: "celery", Workers: "1"},
	{Name: ScheduledWorker, Command: "worker", Queues: "scheduled_queries,schemas", Workers: "1"},
	{Name: AdhocWorker, Command: "worker", Queues: "queries", Workers: "2"},
}

// RunCreateDBCommand is the Fn::Sub body of the create_db output.
const RunCreateDBCommand = "aws ecs run-task --cluster ${ClusterArn} --task-definition ${TaskDefinitionArn} " +
	"--launch-type FARGATE --network-configuration " +
	`'{"awsvpcConfiguration":{"subnets":["${Subnet}"]}}'`

// RunCreateDBDescription describes the create_db output.
const RunCreateDBDescription = "Run this command to create the Redash Table after the RDS instance is created"

// Secrets are the secrets handed to every task.
type Secrets struct {
	SecretKey    *secrets.Entry
	CookieSecret *secrets.Entry
	DatabaseURL  *secrets.Entry
}

// Redash is the composed deployment.
type Redash struct {
	Config     config.Config
	Names      naming.Names
	Stack      *template.Stack
	Network    *network.Network
	Cluster    *cluster.Cluster
	Database   *database.Instance
	Cache      *cache.Cluster
	Secrets    Secrets
	Repository *registry.Repository

	Tasks   map[string]*service.Task
	Server  *service.LoadBalancedService
	Workers map[string]*service.AutoscalingService

	lookup network.Lookup
}

// New validates cfg and declares the whole deployment. lookup is only used
// when cfg.VpcID is set. Any provider error aborts the pass.
func New(ctx context.Context, cfg config.Config, lookup network.Lookup, logger zerolog.Logger) (*Redash, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx)

	names := naming.New(cfg.StageName)
	r := &Redash{
		Config:  cfg,
		Names:   names,
		Stack:   template.NewStack(fmt.Sprintf("Redash %s (%s)", cfg.StageName, names.StackName())).WithLogger(logger),
		Tasks:   make(map[string]*service.Task),
		Workers: make(map[string]*service.AutoscalingService),
		lookup:  lookup,
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"network", r.declareNetwork},
		{"cluster", r.declareCluster},
		{"database", r.declareDatabase},
		{"cache", r.declareCache},
		{"secrets", r.declareSecrets},
		{"registry", r.declareRegistry},
		{"tasks", r.declareTasks},
		{"services", r.declareServices},
		{"outputs", r.declareOutputs},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
		logger.Debug().Str("step", step.name).Int("resources", r.Stack.Len()).Msg("declared")
	}

	logger.Info().
		Str("stage", cfg.StageName).
		Int("resources", r.Stack.Len()).
		Bool("owned_network", r.Network.Owned).
		Msg("composed redash stack")
	return r, nil
}

// Template compiles the arena into a CloudFormation template.
func (r *Redash) Template() (*redash.Template, error) {
	return r.Stack.Build()
}

func (r *Redash) declareNetwork(ctx context.Context) error {
	n, err := network.Resolve(ctx, r.Config, r.Stack, r.lookup)
	if err != nil {
		return err
	}
	r.Network = n
	return nil
}

func (r *Redash) declareCluster(context.Context) error {
	c, err := cluster.Provision(r.Config, r.Stack)
	r.Cluster = c
	return err
}

func (r *Redash) declareDatabase(context.Context) error {
	db, err := database.Provision(r.Config, r.Stack, r.Network)
	r.Database = db
	return err
}

func (r *Redash) declareCache(context.Context) error {
	c, err := cache.Provision(r.Config, r.Stack, r.Network)
	r.Cache = c
	return err
}

func (r *Redash) declareSecrets(context.Context) error {
	var err error
	if r.Secrets.CookieSecret, err = secrets.Generate(r.Config, r.Stack, secrets.CookieSecretName); err != nil {
		return err
	}
	if r.Secrets.SecretKey, err = secrets.Generate(r.Config, r.Stack, secrets.SecretKeyName); err != nil {
		return err
	}
	r.Secrets.DatabaseURL, err = secrets.DatabaseURL(r.Config, r.Stack, r.Database)
	return err
}

func (r *Redash) declareRegistry(context.Context) error {
	repo, err := registry.Provision(r.Config, r.Stack)
	r.Repository = repo
	return err
}

// environment returns the variables every container receives plus extra.
func (r *Redash) environment(extra map[string]any) map[string]any {
	env := map[string]any{
		"REDASH_LOG_LEVEL": "INFO",
		"PYTHONUNBUFFERED": "0",
		"REDASH_REDIS_URL": r.Cache.URL(),
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// secretMap returns the secrets every container receives.
func (r *Redash) secretMap() map[string]service.SecretRef {
	return map[string]service.SecretRef{
		"REDASH_SECRET_KEY":    r.Secrets.SecretKey,
		"REDASH_COOKIE_SECRET": r.Secrets.CookieSecret,
		"REDASH_DATABASE_URL":  r.Secrets.DatabaseURL,
	}
}

func (r *Redash) taskParams(name string, command []string, port int, extra map[string]any) service.TaskParams {
	return service.TaskParams{
		ServiceName: name,
		Image:       r.Config.RedashImage,
		Command:     command,
		CPU:         TaskCPU,
		MemoryMiB:   TaskMemoryMiB,
		Port:        port,
		Environment: r.environment(extra),
		Secrets:     r.secretMap(),
	}
}

func (r *Redash) declareTasks(context.Context) error {
	params := []service.TaskParams{
		r.taskParams(CreateDB, []string{"create_db"}, 0, nil),
		r.taskParams(Server, nil, ServerPort, map[string]any{"REDASH_WEB_WORKERS": ServerWebWorkers}),
	}
	for _, w := range Workers {
		params = append(params, r.taskParams(w.Name, []string{w.Command}, 0, map[string]any{
			"QUEUES":        w.Queues,
			"WORKERS_COUNT": w.Workers,
		}))
	}

	for _, p := range params {
		task, err := service.DefineTask(r.Config, r.Stack, p)
		if err != nil {
			return err
		}
		r.Tasks[p.ServiceName] = task
	}
	return nil
}

func (r *Redash) declareServices(context.Context) error {
	server, err := service.DeployPublic(r.Config, r.Stack, service.ServiceParams{
		Task:         r.Tasks[Server],
		Cluster:      r.Cluster,
		Network:      r.Network,
		DesiredCount: 1,
	})
	if err != nil {
		return err
	}
	r.Server = server

	for _, w := range Workers {
		svc, err := service.DeployAutoscaled(r.Config, r.Stack, service.DefaultAutoscaling(service.ServiceParams{
			Task:         r.Tasks[w.Name],
			Cluster:      r.Cluster,
			Network:      r.Network,
			DesiredCount: 1,
		}))
		if err != nil {
			return err
		}
		r.Workers[w.Name] = svc
	}
	return nil
}

func (r *Redash) declareOutputs(context.Context) error {
	if err := r.Stack.AddOutput(r.Names.ServerURLOutput(), redash.Output{
		Description: "Redash server load balancer address",
		Value:       r.Server.DNSName(),
	}); err != nil {
		return err
	}

	if len(r.Network.Private) == 0 {
		return fmt.Errorf("%w: %s", network.ErrMissingTier, network.Private)
	}
	return r.Stack.AddOutput(r.Names.RunCreateDBOutput(), redash.Output{
		Description: RunCreateDBDescription,
		Value: intrinsics.SubWithMap{
			String: RunCreateDBCommand,
			Variables: map[string]any{
				"ClusterArn":        r.Cluster.Arn(),
				"TaskDefinitionArn": r.Tasks[CreateDB].Arn(),
				"Subnet":            r.Network.Private[0].ID,
			},
		},
	})
}
