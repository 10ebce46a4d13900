package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"
)

// The interfaces below mirror the method sets of the AWS SDK v2 clients so
// the real clients satisfy them directly and tests can substitute fakes.

// ComputeAPI covers the EC2 calls used by the compute tools
type ComputeAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// StorageAPI covers the S3 bucket calls used by the storage tools
type StorageAPI interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// FunctionsAPI covers Lambda listing
type FunctionsAPI interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
}

// LogsAPI covers CloudWatch Logs listing
type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// CostAPI covers Cost Explorer queries
type CostAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// BudgetsAPI covers AWS Budgets listing
type BudgetsAPI interface {
	DescribeBudgets(ctx context.Context, params *budgets.DescribeBudgetsInput, optFns ...func(*budgets.Options)) (*budgets.DescribeBudgetsOutput, error)
}

// IdentityAPI resolves the calling account
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Facade bundles one client per resource family. It is built once at
// startup and shared by all requests; the SDK clients are safe for
// concurrent use.
type Facade struct {
	Region    string
	Compute   ComputeAPI
	Storage   StorageAPI
	Functions FunctionsAPI
	Logs      LogsAPI
	Cost      CostAPI
	Budgets   BudgetsAPI
	Identity  IdentityAPI
}

// Option customizes the AWS config used by New
type Option func(*options)

type options struct {
	cfg       *aws.Config
	loadFuncs []func(*config.LoadOptions) error
}

// WithConfig uses an already loaded AWS config instead of the default chain
func WithConfig(cfg aws.Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithLoadOptions forwards extra options to config.LoadDefaultConfig
func WithLoadOptions(fns ...func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.loadFuncs = append(o.loadFuncs, fns...)
	}
}

// LoadConfig resolves AWS credentials and settings from the default chain
// (environment, shared config, instance role) for the given region
func LoadConfig(ctx context.Context, region string, fns ...func(*config.LoadOptions) error) (aws.Config, error) {
	loadFns := append([]func(*config.LoadOptions) error{config.WithRegion(region)}, fns...)
	cfg, err := config.LoadDefaultConfig(ctx, loadFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// New creates a Facade backed by real AWS SDK clients
func New(ctx context.Context, region string, opts ...Option) (*Facade, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.cfg == nil {
		cfg, err := LoadConfig(ctx, region, o.loadFuncs...)
		if err != nil {
			return nil, err
		}
		o.cfg = &cfg
	}

	f := NewFromConfig(*o.cfg)

	log.Info().
		Str("region", f.Region).
		Msg("aws clients initialized")

	return f, nil
}

// NewFromConfig builds all clients from a single AWS config
func NewFromConfig(cfg aws.Config) *Facade {
	return &Facade{
		Region:    cfg.Region,
		Compute:   ec2.NewFromConfig(cfg),
		Storage:   s3.NewFromConfig(cfg),
		Functions: lambda.NewFromConfig(cfg),
		Logs:      cloudwatchlogs.NewFromConfig(cfg),
		Cost:      costexplorer.NewFromConfig(cfg),
		Budgets:   budgets.NewFromConfig(cfg),
		Identity:  sts.NewFromConfig(cfg),
	}
}
