// Package cloudtest provides an in-memory stand-in for every facade client.
package cloudtest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/erauner12/cloudbridge/internal/cloud"
)

// Call is one recorded client invocation
type Call struct {
	Operation string
	Input     any
}

// Fake implements every facade interface. Each operation returns the output
// of its hook when set, otherwise an empty output. Err, when set, is
// returned by every operation without a hook.
type Fake struct {
	DescribeInstances  func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	RunInstances       func(*ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error)
	TerminateInstances func(*ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error)
	ListBuckets        func(*s3.ListBucketsInput) (*s3.ListBucketsOutput, error)
	CreateBucket       func(*s3.CreateBucketInput) (*s3.CreateBucketOutput, error)
	ListFunctions      func(*lambda.ListFunctionsInput) (*lambda.ListFunctionsOutput, error)
	DescribeLogGroups  func(*cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	GetCostAndUsage    func(*costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error)
	DescribeBudgets    func(*budgets.DescribeBudgetsInput) (*budgets.DescribeBudgetsOutput, error)
	GetCallerIdentity  func(*sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error)

	Err error

	mu    sync.Mutex
	calls []Call
}

// Facade wires f into every resource family
func (f *Fake) Facade(region string) *cloud.Facade {
	return &cloud.Facade{
		Region:    region,
		Compute:   computeClient{f},
		Storage:   storageClient{f},
		Functions: functionsClient{f},
		Logs:      logsClient{f},
		Cost:      costClient{f},
		Budgets:   budgetsClient{f},
		Identity:  identityClient{f},
	}
}

// Calls returns the recorded invocations in order
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns the number of recorded invocations
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// LastInput returns the input of the most recent call to operation
func (f *Fake) LastInput(operation string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Operation == operation {
			return f.calls[i].Input
		}
	}
	return nil
}

func (f *Fake) record(operation string, input any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Operation: operation, Input: input})
}

// invoke records the call and runs hook, falling back to Err or an empty output
func invoke[In, Out any](f *Fake, operation string, input *In, hook func(*In) (*Out, error)) (*Out, error) {
	f.record(operation, input)
	if hook != nil {
		return hook(input)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return new(Out), nil
}

// The SDK method names collide with the hook fields, so each family gets a
// thin adapter.

type computeClient struct{ f *Fake }

func (c computeClient) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return invoke(c.f, "DescribeInstances", in, c.f.DescribeInstances)
}

func (c computeClient) RunInstances(_ context.Context, in *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	return invoke(c.f, "RunInstances", in, c.f.RunInstances)
}

func (c computeClient) TerminateInstances(_ context.Context, in *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	return invoke(c.f, "TerminateInstances", in, c.f.TerminateInstances)
}

type storageClient struct{ f *Fake }

func (c storageClient) ListBuckets(_ context.Context, in *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return invoke(c.f, "ListBuckets", in, c.f.ListBuckets)
}

func (c storageClient) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return invoke(c.f, "CreateBucket", in, c.f.CreateBucket)
}

type functionsClient struct{ f *Fake }

func (c functionsClient) ListFunctions(_ context.Context, in *lambda.ListFunctionsInput, _ ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	return invoke(c.f, "ListFunctions", in, c.f.ListFunctions)
}

type logsClient struct{ f *Fake }

func (c logsClient) DescribeLogGroups(_ context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	return invoke(c.f, "DescribeLogGroups", in, c.f.DescribeLogGroups)
}

type costClient struct{ f *Fake }

func (c costClient) GetCostAndUsage(_ context.Context, in *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	return invoke(c.f, "GetCostAndUsage", in, c.f.GetCostAndUsage)
}

type budgetsClient struct{ f *Fake }

func (c budgetsClient) DescribeBudgets(_ context.Context, in *budgets.DescribeBudgetsInput, _ ...func(*budgets.Options)) (*budgets.DescribeBudgetsOutput, error) {
	return invoke(c.f, "DescribeBudgets", in, c.f.DescribeBudgets)
}

type identityClient struct{ f *Fake }

func (c identityClient) GetCallerIdentity(_ context.Context, in *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return invoke(c.f, "GetCallerIdentity", in, c.f.GetCallerIdentity)
}

var (
	_ cloud.ComputeAPI   = computeClient{}
	_ cloud.StorageAPI   = storageClient{}
	_ cloud.FunctionsAPI = functionsClient{}
	_ cloud.LogsAPI      = logsClient{}
	_ cloud.CostAPI      = costClient{}
	_ cloud.BudgetsAPI   = budgetsClient{}
	_ cloud.IdentityAPI  = identityClient{}
)
