package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/redash-aws-go/internal/cluster"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/network"
	"github.com/lex00/redash-aws-go/internal/template"
	"github.com/lex00/redash-aws-go/intrinsics"
)

var cfg = config.Config{StageName: "dev", Region: "us-east-1", RedashImage: config.DefaultRedashImage}

type secretRef string

func (s secretRef) Ref() intrinsics.Ref { return intrinsics.Ref{LogicalName: string(s)} }

type fixture struct {
	stack   *template.Stack
	network *network.Network
	cluster *cluster.Cluster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stack := template.NewStack("")
	n, err := network.Create(cfg, stack)
	require.NoError(t, err)
	c, err := cluster.Provision(cfg, stack)
	require.NoError(t, err)
	return &fixture{stack: stack, network: n, cluster: c}
}

func taskParams(svc string, port int) TaskParams {
	return TaskParams{
		ServiceName: svc,
		Image:       cfg.RedashImage,
		Command:     []string{svc},
		CPU:         1024,
		MemoryMiB:   2048,
		Port:        port,
		Environment: map[string]any{
			"REDASH_LOG_LEVEL": "INFO",
			"PYTHONUNBUFFERED": "0",
		},
		Secrets: map[string]SecretRef{
			"REDASH_SECRET_KEY": secretRef("DevRedashSecretSecret"),
		},
	}
}

func containerOf(t *testing.T, stack *template.Stack, task *Task) map[string]any {
	t.Helper()
	props, ok := stack.Properties(task.Handle.LogicalID)
	require.True(t, ok)
	containers := props["ContainerDefinitions"].([]any)
	require.Len(t, containers, 1)
	return containers[0].(map[string]any)
}

func TestDefineTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.stack.Add("DevRedashSecretSecret", &secretStub{})
	require.NoError(t, err)

	task, err := DefineTask(cfg, f.stack, taskParams("create_db", 0))
	require.NoError(t, err)

	assert.Equal(t, "dev-redash-create_db-task-definition", task.Family)
	assert.Equal(t, "dev-redash-create_db-container", task.ContainerName)
	assert.Equal(t, intrinsics.Ref{LogicalName: "DevRedashCreateDbTaskDefinition"}, task.Arn())

	props, _ := f.stack.Properties(task.Handle.LogicalID)
	assert.Equal(t, "1024", props["Cpu"])
	assert.Equal(t, "2048", props["Memory"])
	assert.Equal(t, "awsvpc", props["NetworkMode"])
	assert.Equal(t, []any{"FARGATE"}, props["RequiresCompatibilities"])

	c := containerOf(t, f.stack, task)
	assert.Equal(t, []any{"create_db"}, c["Command"])
	assert.NotContains(t, c, "PortMappings")

	// Environment is sorted by name and never carries the secret.
	env := c["Environment"].([]any)
	require.Len(t, env, 2)
	assert.Equal(t, "PYTHONUNBUFFERED", env[0].(map[string]any)["Name"])
	assert.Equal(t, "REDASH_LOG_LEVEL", env[1].(map[string]any)["Name"])

	secrets := c["Secrets"].([]any)
	require.Len(t, secrets, 1)
	assert.Equal(t, map[string]any{
		"Name":      "REDASH_SECRET_KEY",
		"ValueFrom": map[string]any{"Ref": "DevRedashSecretSecret"},
	}, secrets[0])

	logConfig := c["LogConfiguration"].(map[string]any)
	assert.Equal(t, "awslogs", logConfig["LogDriver"])
	opts := logConfig["Options"].(map[string]any)
	assert.Equal(t, "dev-redash-create_db", opts["awslogs-stream-prefix"])
	assert.Equal(t, map[string]any{"Ref": "AWS::Region"}, opts["awslogs-region"])

	logGroup, _ := f.stack.Properties(task.LogGroup.LogicalID)
	assert.Equal(t, int64(7), logGroup["RetentionInDays"])

	_, err = f.stack.Build()
	require.NoError(t, err)
}

func TestDefineTask_ExecutionRoleReadsOnlyItsSecrets(t *testing.T) {
	f := newFixture(t)

	p := taskParams("server", 5000)
	p.Secrets["REDASH_COOKIE_SECRET"] = secretRef("DevRedashCookieSecretSecret")
	task, err := DefineTask(cfg, f.stack, p)
	require.NoError(t, err)

	role, _ := f.stack.Properties(task.ExecutionRole.LogicalID)
	policies := role["Policies"].([]any)
	require.Len(t, policies, 1)
	doc := policies[0].(map[string]any)["PolicyDocument"].(map[string]any)
	stmt := doc["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{
		map[string]any{"Ref": "DevRedashCookieSecretSecret"},
		map[string]any{"Ref": "DevRedashSecretSecret"},
	}, stmt["Resource"])

	assume := role["AssumeRolePolicyDocument"].(map[string]any)
	principal := assume["Statement"].([]any)[0].(map[string]any)["Principal"]
	assert.Equal(t, map[string]any{"Service": "ecs-tasks.amazonaws.com"}, principal)
}

func TestDefineTask_PortMapping(t *testing.T) {
	f := newFixture(t)

	task, err := DefineTask(cfg, f.stack, taskParams("server", 5000))
	require.NoError(t, err)

	c := containerOf(t, f.stack, task)
	assert.Equal(t, []any{map[string]any{"ContainerPort": int64(5000), "Protocol": "tcp"}}, c["PortMappings"])
}

func TestDefineTask_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TaskParams)
	}{
		{"missing name", func(p *TaskParams) { p.ServiceName = "" }},
		{"missing image", func(p *TaskParams) { p.Image = "" }},
		{"bad cpu", func(p *TaskParams) { p.CPU = 1000 }},
		{"too little memory", func(p *TaskParams) { p.MemoryMiB = 512 }},
		{"bad port", func(p *TaskParams) { p.Port = 70000 }},
		{"secret shadows env", func(p *TaskParams) { p.Environment["REDASH_SECRET_KEY"] = "plain" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := template.NewStack("")
			p := taskParams("server", 5000)
			tt.mutate(&p)
			_, err := DefineTask(cfg, stack, p)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.Equal(t, 0, stack.Len())
		})
	}
}

func TestDeployPrivate(t *testing.T) {
	f := newFixture(t)
	task, err := DefineTask(cfg, f.stack, taskParams("scheduler", 0))
	require.NoError(t, err)

	svc, err := DeployPrivate(cfg, f.stack, ServiceParams{Task: task, Cluster: f.cluster, Network: f.network, DesiredCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "dev-redash-scheduler-service", svc.Name)

	props, _ := f.stack.Properties(svc.Handle.LogicalID)
	assert.Equal(t, "dev-redash-scheduler-service", props["ServiceName"])
	assert.Equal(t, "FARGATE", props["LaunchType"])
	assert.Equal(t, int64(1), props["DesiredCount"])
	assert.Equal(t, map[string]any{"Ref": "DevRedashSchedulerTaskDefinition"}, props["TaskDefinition"])
	assert.Equal(t, map[string]any{"Ref": "DevRedashCluster"}, props["Cluster"])
	assert.NotContains(t, props, "LoadBalancers")

	vpcConfig := props["NetworkConfiguration"].(map[string]any)["AwsvpcConfiguration"].(map[string]any)
	assert.Equal(t, "DISABLED", vpcConfig["AssignPublicIp"])
	assert.Len(t, vpcConfig["Subnets"], len(f.network.Private))

	sg, _ := f.stack.Properties(svc.SecurityGroup.LogicalID)
	assert.NotContains(t, sg, "SecurityGroupIngress")
}

func TestDeployPrivate_Validation(t *testing.T) {
	f := newFixture(t)
	task, err := DefineTask(cfg, f.stack, taskParams("scheduler", 0))
	require.NoError(t, err)

	_, err = DeployPrivate(cfg, f.stack, ServiceParams{Task: task, Cluster: f.cluster, Network: f.network, DesiredCount: 0})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = DeployPrivate(cfg, f.stack, ServiceParams{Task: task, Network: f.network, DesiredCount: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDeployPublic(t *testing.T) {
	f := newFixture(t)
	task, err := DefineTask(cfg, f.stack, taskParams("server", 5000))
	require.NoError(t, err)

	svc, err := DeployPublic(cfg, f.stack, ServiceParams{Task: task, Cluster: f.cluster, Network: f.network, DesiredCount: 1})
	require.NoError(t, err)

	assert.Equal(t, intrinsics.GetAtt{LogicalName: svc.LoadBalancer.LogicalID, Attribute: "DNSName"}, svc.DNSName())

	lb, _ := f.stack.Properties(svc.LoadBalancer.LogicalID)
	assert.Equal(t, "internet-facing", lb["Scheme"])
	assert.Len(t, lb["Subnets"], len(f.network.Public))

	tg, _ := f.stack.Properties(svc.TargetGroup.LogicalID)
	assert.Equal(t, "ip", tg["TargetType"])
	assert.Equal(t, int64(5000), tg["Port"])
	assert.Equal(t, map[string]any{"HttpCode": "200-399"}, tg["Matcher"])

	listener, _ := f.stack.Properties(svc.Listener.LogicalID)
	assert.Equal(t, int64(80), listener["Port"])

	props, _ := f.stack.Properties(svc.Handle.LogicalID)
	lbs := props["LoadBalancers"].([]any)
	require.Len(t, lbs, 1)
	assert.Equal(t, "dev-redash-server-container", lbs[0].(map[string]any)["ContainerName"])

	// Tasks accept traffic from the load balancer security group only.
	sg, _ := f.stack.Properties(svc.SecurityGroup.LogicalID)
	ingress := sg["SecurityGroupIngress"].([]any)
	require.Len(t, ingress, 1)
	rule := ingress[0].(map[string]any)
	assert.NotContains(t, rule, "CidrIp")
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{svc.LoadBalancerSecurityGroup.LogicalID, "GroupId"}}, rule["SourceSecurityGroupId"])

	tmpl, err := f.stack.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{svc.Listener.LogicalID}, tmpl.Resources[svc.Handle.LogicalID].DependsOn)
}

func TestDeployPublic_RequiresPort(t *testing.T) {
	f := newFixture(t)
	task, err := DefineTask(cfg, f.stack, taskParams("server", 0))
	require.NoError(t, err)

	_, err = DeployPublic(cfg, f.stack, ServiceParams{Task: task, Cluster: f.cluster, Network: f.network, DesiredCount: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDeployAutoscaled(t *testing.T) {
	f := newFixture(t)
	task, err := DefineTask(cfg, f.stack, taskParams("adhoc_worker", 0))
	require.NoError(t, err)

	svc, err := DeployAutoscaled(cfg, f.stack, DefaultAutoscaling(ServiceParams{
		Task: task, Cluster: f.cluster, Network: f.network, DesiredCount: 1,
	}))
	require.NoError(t, err)

	target, _ := f.stack.Properties(svc.ScalableTarget.LogicalID)
	assert.Equal(t, int64(1), target["MinCapacity"])
	assert.Equal(t, int64(4), target["MaxCapacity"])
	assert.Equal(t, "ecs:service:DesiredCount", target["ScalableDimension"])

	cpu, _ := f.stack.Properties(svc.CPUPolicy.LogicalID)
	assert.Equal(t, "dev-redash-adhoc_worker-scale-cpu", cpu["PolicyName"])
	cpuConfig := cpu["TargetTrackingScalingPolicyConfiguration"].(map[string]any)
	assert.Equal(t, float64(80), cpuConfig["TargetValue"])
	assert.Equal(t, int64(10), cpuConfig["ScaleInCooldown"])
	assert.Equal(t, int64(60), cpuConfig["ScaleOutCooldown"])

	memory, _ := f.stack.Properties(svc.MemoryPolicy.LogicalID)
	assert.Equal(t, "dev-redash-adhoc_worker-scale-memory", memory["PolicyName"])
	memConfig := memory["TargetTrackingScalingPolicyConfiguration"].(map[string]any)
	assert.Equal(t, int64(20), memConfig["ScaleOutCooldown"])
	assert.Equal(t,
		map[string]any{"PredefinedMetricType": "ECSServiceAverageMemoryUtilization"},
		memConfig["PredefinedMetricSpecification"])

	_, err = f.stack.Build()
	require.NoError(t, err)
}

func TestDeployAutoscaled_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AutoscalingParams)
	}{
		{"desired above max", func(p *AutoscalingParams) { p.DesiredCount = 5 }},
		{"zero cpu target", func(p *AutoscalingParams) { p.CPUTargetPercent = 0 }},
		{"memory target above 100", func(p *AutoscalingParams) { p.MemoryTargetPercent = 101 }},
		{"negative cooldown", func(p *AutoscalingParams) { p.MemoryScaleIn = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			task, err := DefineTask(cfg, f.stack, taskParams("scheduler", 0))
			require.NoError(t, err)
			before := f.stack.Len()

			p := DefaultAutoscaling(ServiceParams{Task: task, Cluster: f.cluster, Network: f.network, DesiredCount: 1})
			tt.mutate(&p)
			_, err = DeployAutoscaled(cfg, f.stack, p)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.Equal(t, before, f.stack.Len())
		})
	}
}

type secretStub struct{}

func (secretStub) ResourceType() string { return "AWS::SecretsManager::Secret" }
