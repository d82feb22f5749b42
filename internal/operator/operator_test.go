package operator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/redash-aws-go/internal/awsclient"
	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/network"
)

type fakeEC2 struct {
	vpcs      []ec2types.Vpc
	vpcInputs []*ec2.DescribeVpcsInput
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	f.vpcInputs = append(f.vpcInputs, in)
	return &ec2.DescribeVpcsOutput{Vpcs: f.vpcs}, nil
}

func (f *fakeEC2) DescribeSubnets(context.Context, *ec2.DescribeSubnetsInput, ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	return &ec2.DescribeSubnetsOutput{Subnets: []ec2types.Subnet{
		{SubnetId: aws.String("subnet-pub-a"), CidrBlock: aws.String("10.0.0.0/24"), AvailabilityZone: aws.String("us-east-1a")},
		{SubnetId: aws.String("subnet-priv-a"), CidrBlock: aws.String("10.0.2.0/24"), AvailabilityZone: aws.String("us-east-1a")},
		{SubnetId: aws.String("subnet-priv-b"), CidrBlock: aws.String("10.0.3.0/24"), AvailabilityZone: aws.String("us-east-1b")},
		{SubnetId: aws.String("subnet-iso-a"), CidrBlock: aws.String("10.0.4.0/28"), AvailabilityZone: aws.String("us-east-1a")},
	}}, nil
}

func (f *fakeEC2) DescribeRouteTables(context.Context, *ec2.DescribeRouteTablesInput, ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	route := func(r ec2types.Route) []ec2types.Route {
		r.DestinationCidrBlock = aws.String("0.0.0.0/0")
		return []ec2types.Route{r}
	}
	return &ec2.DescribeRouteTablesOutput{RouteTables: []ec2types.RouteTable{
		{
			RouteTableId: aws.String("rtb-main"),
			Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(true)}},
		},
		{
			RouteTableId: aws.String("rtb-public"),
			Associations: []ec2types.RouteTableAssociation{{SubnetId: aws.String("subnet-pub-a")}},
			Routes:       route(ec2types.Route{GatewayId: aws.String("igw-1")}),
		},
		{
			RouteTableId: aws.String("rtb-private"),
			Associations: []ec2types.RouteTableAssociation{
				{SubnetId: aws.String("subnet-priv-a")},
				{SubnetId: aws.String("subnet-priv-b")},
			},
			Routes: route(ec2types.Route{NatGatewayId: aws.String("nat-1")}),
		},
	}}, nil
}

type fakeECS struct {
	runOut   *awsecs.RunTaskOutput
	runIns   []*awsecs.RunTaskInput
	statuses []string
	exitCode int32
	polls    int

	services    []ecstypes.Service
	serviceIns  []*awsecs.DescribeServicesInput
	servicesErr error
}

func (f *fakeECS) RunTask(_ context.Context, in *awsecs.RunTaskInput, _ ...func(*awsecs.Options)) (*awsecs.RunTaskOutput, error) {
	f.runIns = append(f.runIns, in)
	return f.runOut, nil
}

func (f *fakeECS) DescribeTasks(_ context.Context, in *awsecs.DescribeTasksInput, _ ...func(*awsecs.Options)) (*awsecs.DescribeTasksOutput, error) {
	status := f.statuses[len(f.statuses)-1]
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	task := ecstypes.Task{TaskArn: aws.String(in.Tasks[0]), LastStatus: aws.String(status)}
	if status == "STOPPED" {
		task.StoppedReason = aws.String("Essential container in task exited")
		task.Containers = []ecstypes.Container{
			{Name: aws.String("dev-redash-create_db-container"), ExitCode: aws.Int32(f.exitCode)},
		}
	}
	return &awsecs.DescribeTasksOutput{Tasks: []ecstypes.Task{task}}, nil
}

func (f *fakeECS) DescribeServices(_ context.Context, in *awsecs.DescribeServicesInput, _ ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error) {
	f.serviceIns = append(f.serviceIns, in)
	if f.servicesErr != nil {
		return nil, f.servicesErr
	}
	return &awsecs.DescribeServicesOutput{Services: f.services}, nil
}

type fakeSTS struct{ account string }

func (f *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

type fakeSecrets struct{ existing map[string]bool }

func (f *fakeSecrets) DescribeSecret(_ context.Context, in *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	name := aws.ToString(in.SecretId)
	if !f.existing[name] {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.DescribeSecretOutput{Name: aws.String(name)}, nil
}

type fixture struct {
	ec2     *fakeEC2
	ecs     *fakeECS
	secrets *fakeSecrets
	clients *awsclient.Clients
}

func newFixture() *fixture {
	f := &fixture{
		ec2: &fakeEC2{vpcs: []ec2types.Vpc{{VpcId: aws.String("vpc-0123456789abcdef0"), CidrBlock: aws.String("10.0.0.0/16")}}},
		ecs: &fakeECS{
			runOut: &awsecs.RunTaskOutput{Tasks: []ecstypes.Task{
				{TaskArn: aws.String("arn:aws:ecs:us-east-1:123456789012:task/dev/abc"), LastStatus: aws.String("PROVISIONING")},
			}},
			statuses: []string{"RUNNING", "STOPPED"},
		},
		secrets: &fakeSecrets{existing: map[string]bool{
			"dev-redash-cookie-secret-secret": true,
			"dev-redash-secret-secret":        true,
			"dev-redash-database-url-secret":  true,
		}},
	}
	f.clients = &awsclient.Clients{EC2: f.ec2, ECS: f.ecs, STS: &fakeSTS{account: "123456789012"}, SecretsManager: f.secrets}
	return f
}

func TestRunCreateDB(t *testing.T) {
	f := newFixture()
	op := New(config.Default(), f.clients)

	result, err := op.RunCreateDB(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "123456789012", result.Account)
	assert.Equal(t, "dev-redash-cluster", result.Cluster)
	assert.Equal(t, "dev-redash-create_db-task-definition", result.TaskDefinition)
	assert.Equal(t, "subnet-priv-a", result.Subnet)
	assert.Equal(t, "arn:aws:ecs:us-east-1:123456789012:task/dev/abc", result.TaskArn)
	assert.Nil(t, result.ExitCode)
	assert.Zero(t, f.ecs.polls)

	require.Len(t, f.ecs.runIns, 1)
	in := f.ecs.runIns[0]
	assert.Equal(t, ecstypes.LaunchTypeFargate, in.LaunchType)
	assert.Equal(t, int32(1), aws.ToInt32(in.Count))
	assert.Equal(t, []string{"subnet-priv-a"}, in.NetworkConfiguration.AwsvpcConfiguration.Subnets)
	assert.Equal(t, ecstypes.AssignPublicIpDisabled, in.NetworkConfiguration.AwsvpcConfiguration.AssignPublicIp)

	require.Len(t, f.ec2.vpcInputs, 1)
	require.Len(t, f.ec2.vpcInputs[0].Filters, 1)
	assert.Equal(t, []string{"dev-redash-vpc"}, f.ec2.vpcInputs[0].Filters[0].Values)
}

func TestRunCreateDB_ConfiguredVPC(t *testing.T) {
	f := newFixture()
	cfg := config.Default()
	cfg.VpcID = "vpc-0123456789abcdef0"

	_, err := New(cfg, f.clients).RunCreateDB(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, f.ec2.vpcInputs, 1)
	assert.Equal(t, []string{"vpc-0123456789abcdef0"}, f.ec2.vpcInputs[0].VpcIds)
}

func TestRunCreateDB_Wait(t *testing.T) {
	tests := []struct {
		name      string
		exitCode  int32
		succeeded bool
	}{
		{name: "success", exitCode: 0, succeeded: true},
		{name: "failure", exitCode: 1, succeeded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.ecs.exitCode = tt.exitCode

			result, err := New(config.Default(), f.clients).RunCreateDB(context.Background(), RunOptions{
				Wait:         true,
				PollInterval: time.Millisecond,
				Timeout:      5 * time.Second,
			})
			require.NoError(t, err)

			assert.Equal(t, "STOPPED", result.LastStatus)
			assert.Equal(t, 2, f.ecs.polls)
			require.NotNil(t, result.ExitCode)
			assert.Equal(t, tt.exitCode, *result.ExitCode)
			assert.Equal(t, tt.succeeded, result.Succeeded())
			assert.NotEmpty(t, result.StoppedReason)
		})
	}
}

func TestRunCreateDB_WaitTimeout(t *testing.T) {
	f := newFixture()
	f.ecs.statuses = []string{"RUNNING"}

	_, err := New(config.Default(), f.clients).RunCreateDB(context.Background(), RunOptions{
		Wait:         true,
		PollInterval: time.Millisecond,
		Timeout:      20 * time.Millisecond,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunCreateDB_LaunchFailure(t *testing.T) {
	f := newFixture()
	f.ecs.runOut = &awsecs.RunTaskOutput{Failures: []ecstypes.Failure{{Reason: aws.String("RESOURCE:MEMORY")}}}

	_, err := New(config.Default(), f.clients).RunCreateDB(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE:MEMORY")
}

func TestRunCreateDB_AccountMismatch(t *testing.T) {
	f := newFixture()
	cfg := config.Default()
	cfg.AccountID = "999999999999"

	_, err := New(cfg, f.clients).RunCreateDB(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrAccountMismatch)
	assert.Empty(t, f.ecs.runIns)
}

func TestRunCreateDB_NetworkNotFound(t *testing.T) {
	f := newFixture()
	f.ec2.vpcs = nil

	_, err := New(config.Default(), f.clients).RunCreateDB(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, network.ErrNetworkNotFound)
	assert.Empty(t, f.ecs.runIns)
}

func TestStatus(t *testing.T) {
	f := newFixture()
	f.ecs.services = []ecstypes.Service{
		{ServiceName: aws.String("dev-redash-server-service"), Status: aws.String("ACTIVE"), DesiredCount: 1, RunningCount: 1},
		{ServiceName: aws.String("dev-redash-scheduler-service"), Status: aws.String("ACTIVE"), DesiredCount: 1, RunningCount: 1},
		{ServiceName: aws.String("dev-redash-scheduled_worker-service"), Status: aws.String("ACTIVE"), DesiredCount: 2, RunningCount: 2},
		{ServiceName: aws.String("dev-redash-adhoc_worker-service"), Status: aws.String("ACTIVE"), DesiredCount: 1, RunningCount: 1},
	}

	report, err := New(config.Default(), f.clients).Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "dev", report.Stage)
	assert.Equal(t, "vpc-0123456789abcdef0", report.VpcID)
	assert.Len(t, report.Secrets, 3)
	assert.Len(t, report.Services, 4)
	assert.True(t, report.Healthy())

	require.Len(t, f.ecs.serviceIns, 1)
	assert.Equal(t, "dev-redash-cluster", aws.ToString(f.ecs.serviceIns[0].Cluster))
	assert.Equal(t, []string{
		"dev-redash-server-service",
		"dev-redash-scheduler-service",
		"dev-redash-scheduled_worker-service",
		"dev-redash-adhoc_worker-service",
	}, f.ecs.serviceIns[0].Services)
}

func TestStatus_Degraded(t *testing.T) {
	f := newFixture()
	delete(f.secrets.existing, "dev-redash-database-url-secret")
	f.ecs.services = []ecstypes.Service{
		{ServiceName: aws.String("dev-redash-server-service"), Status: aws.String("ACTIVE"), DesiredCount: 1, RunningCount: 0, PendingCount: 1},
	}

	report, err := New(config.Default(), f.clients).Status(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Healthy())

	assert.Equal(t, []SecretStatus{
		{Name: "dev-redash-cookie-secret-secret", Exists: true},
		{Name: "dev-redash-secret-secret", Exists: true},
		{Name: "dev-redash-database-url-secret", Exists: false},
	}, report.Secrets)

	assert.True(t, report.Services[0].Found)
	assert.False(t, report.Services[0].Healthy())
	assert.Equal(t, ServiceStatus{Name: "dev-redash-scheduler-service"}, report.Services[1])
}

func TestStatus_NetworkMissing(t *testing.T) {
	f := newFixture()
	f.ec2.vpcs = nil

	report, err := New(config.Default(), f.clients).Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.VpcID)
	assert.Contains(t, report.Network, "not found")
	assert.False(t, report.Healthy())
}

func TestStatus_ServicesError(t *testing.T) {
	f := newFixture()
	f.ecs.servicesErr = errors.New("access denied")

	_, err := New(config.Default(), f.clients).Status(context.Background())
	assert.ErrorContains(t, err, "access denied")
}
