package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgetstypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/cloudbridge/internal/audit"
	"github.com/erauner12/cloudbridge/internal/cloud/cloudtest"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("audit bucket unreachable")
}

type harness struct {
	fake       *cloudtest.Fake
	store      *audit.MemoryStore
	recorder   *audit.Recorder
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, fake *cloudtest.Fake, region string, opts ...DispatcherOption) *harness {
	t.Helper()

	store := audit.NewMemoryStore()
	return newHarnessWithStore(t, fake, region, store, opts...)
}

func newHarnessWithStore(t *testing.T, fake *cloudtest.Fake, region string, store audit.Store, opts ...DispatcherOption) *harness {
	t.Helper()

	recorder := audit.NewRecorder(store, audit.WithLogger(zerolog.Nop()), audit.WithClock(func() time.Time { return fixedNow }))
	opts = append([]DispatcherOption{WithClock(func() time.Time { return fixedNow })}, opts...)

	d, err := NewDispatcher(NewCatalog(), fake.Facade(region), recorder, opts...)
	require.NoError(t, err)

	h := &harness{fake: fake, recorder: recorder, dispatcher: d}
	if mem, ok := store.(*audit.MemoryStore); ok {
		h.store = mem
	}
	return h
}

func (h *harness) call(name string, args Arguments) Result {
	return h.dispatcher.Dispatch(context.Background(), CallRequest{Name: name, Arguments: args})
}

// records drains pending audit writes and returns what was stored
func (h *harness) records(t *testing.T) []audit.Record {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.recorder.Close(ctx))

	records, err := h.store.Records()
	require.NoError(t, err)
	return records
}

// populatedFake answers every operation with a small fixed response
func populatedFake() *cloudtest.Fake {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	return &cloudtest.Fake{
		DescribeInstances: func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
			return &ec2.DescribeInstancesOutput{
				Reservations: []ec2types.Reservation{{
					Instances: []ec2types.Instance{
						{
							InstanceId:   aws.String("i-1"),
							InstanceType: ec2types.InstanceTypeT2Micro,
							State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
						},
						{
							InstanceId:   aws.String("i-2"),
							InstanceType: ec2types.InstanceTypeT3Small,
							State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped},
						},
					},
				}},
			}, nil
		},
		RunInstances: func(*ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error) {
			return &ec2.RunInstancesOutput{
				Instances: []ec2types.Instance{{InstanceId: aws.String("i-new")}},
			}, nil
		},
		ListBuckets: func(*s3.ListBucketsInput) (*s3.ListBucketsOutput, error) {
			return &s3.ListBucketsOutput{
				Buckets: []s3types.Bucket{{Name: aws.String("a")}, {Name: aws.String("b")}},
			}, nil
		},
		ListFunctions: func(*lambda.ListFunctionsInput) (*lambda.ListFunctionsOutput, error) {
			return &lambda.ListFunctionsOutput{
				Functions: []lambdatypes.FunctionConfiguration{{FunctionName: aws.String("resize")}},
			}, nil
		},
		DescribeLogGroups: func(*cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
			return &cloudwatchlogs.DescribeLogGroupsOutput{
				LogGroups: []logstypes.LogGroup{{LogGroupName: aws.String("/aws/lambda/resize")}},
			}, nil
		},
		GetCostAndUsage: func(*costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
			return &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []cetypes.ResultByTime{{
					TimePeriod: &cetypes.DateInterval{Start: aws.String("2024-01-01"), End: aws.String("2024-02-01")},
					Total: map[string]cetypes.MetricValue{
						"UnblendedCost": {Amount: aws.String("12.34"), Unit: aws.String("USD")},
					},
				}},
			}, nil
		},
		DescribeBudgets: func(*budgets.DescribeBudgetsInput) (*budgets.DescribeBudgetsOutput, error) {
			return &budgets.DescribeBudgetsOutput{
				Budgets: []budgetstypes.Budget{{
					BudgetName: aws.String("monthly"),
					BudgetType: budgetstypes.BudgetTypeCost,
					TimeUnit:   budgetstypes.TimeUnitMonthly,
					TimePeriod: &budgetstypes.TimePeriod{Start: &start, End: &end},
				}},
			}, nil
		},
		GetCallerIdentity: func(*sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
		},
	}
}

// satisfiedArgs returns arguments meeting every required field of the catalog
func satisfiedArgs(name string) Arguments {
	switch name {
	case ToolTerminateInstance:
		return Arguments{"instance_id": "i-1"}
	case ToolCreateBucket:
		return Arguments{"bucket_name": "reports"}
	default:
		return Arguments{}
	}
}

func TestDispatch_ListBuckets(t *testing.T) {
	h := newHarness(t, populatedFake(), "eu-west-1")

	result := h.call(ToolListBuckets, Arguments{})

	require.True(t, result.OK(), "unexpected error: %v", result.Err)
	assert.Equal(t, map[string]any{"buckets": []string{"a", "b"}}, result.Payload)

	records := h.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, ToolListBuckets, records[0].Action)
	assert.Equal(t, []any{"a", "b"}, records[0].Details["buckets"])
	assert.Equal(t, fixedNow.Format(time.RFC3339Nano), records[0].Timestamp)
}

func TestDispatch_UnknownTool(t *testing.T) {
	fake := populatedFake()
	h := newHarness(t, fake, "eu-west-1")

	result := h.call("delete_everything", Arguments{"force": true})

	require.False(t, result.OK())
	assert.Equal(t, ErrCodeMethodNotFound, result.Err.Code)
	assert.Equal(t, "Unknown tool: delete_everything", result.Err.Message)
	assert.Nil(t, result.Payload)
	assert.Zero(t, fake.CallCount(), "unknown tools must never reach the facade")

	code, _, _ := result.Err.ToJSONRPCError()
	assert.Equal(t, -32601, code)

	records := h.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, audit.ActionError, records[0].Action)
	assert.Equal(t, map[string]any{
		"tool":  "delete_everything",
		"error": "Unknown tool: delete_everything",
	}, records[0].Details)
}

func TestDispatch_MissingRequiredArguments(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		args  Arguments
		field string
	}{
		{"terminate with empty args", ToolTerminateInstance, Arguments{}, "instance_id"},
		{"terminate with nil args", ToolTerminateInstance, nil, "instance_id"},
		{"terminate with blank id", ToolTerminateInstance, Arguments{"instance_id": ""}, "instance_id"},
		{"create bucket with empty args", ToolCreateBucket, Arguments{}, "bucket_name"},
		{"create bucket with null name", ToolCreateBucket, Arguments{"bucket_name": nil}, "bucket_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := populatedFake()
			h := newHarness(t, fake, "eu-west-1")

			result := h.call(tt.tool, tt.args)

			require.False(t, result.OK())
			assert.Equal(t, ErrCodeInvalidParams, result.Err.Code)
			assert.Equal(t, tt.field+" is required", result.Err.Message)
			assert.Zero(t, fake.CallCount())
			assert.Empty(t, h.records(t), "rejected arguments are not audited")

			code, _, _ := result.Err.ToJSONRPCError()
			assert.Equal(t, -32602, code)
		})
	}
}

func TestDispatch_ValidCallsNeverFailValidation(t *testing.T) {
	// Both a healthy and a broken facade: neither may surface as a
	// protocol-level rejection
	fakes := map[string]*cloudtest.Fake{
		"populated": populatedFake(),
		"empty":     {},
		"failing":   {Err: errors.New("throttled")},
	}

	for fakeName, fake := range fakes {
		h := newHarness(t, fake, "eu-west-1")
		for _, desc := range NewCatalog().List() {
			t.Run(fakeName+"/"+desc.Name, func(t *testing.T) {
				result := h.call(desc.Name, satisfiedArgs(desc.Name))
				if result.OK() {
					return
				}
				assert.NotEqual(t, ErrCodeMethodNotFound, result.Err.Code)
				assert.NotEqual(t, ErrCodeInvalidParams, result.Err.Code)
			})
		}
	}
}

func TestDispatch_AuditFailureDoesNotChangeOutcome(t *testing.T) {
	for _, desc := range NewCatalog().List() {
		for _, args := range []Arguments{satisfiedArgs(desc.Name), {}} {
			healthy := newHarness(t, populatedFake(), "eu-west-1")
			broken := newHarnessWithStore(t, populatedFake(), "eu-west-1", failingStore{})

			want := healthy.call(desc.Name, args)
			got := broken.call(desc.Name, args)

			assert.Equal(t, want, got, "tool %s with %v", desc.Name, args)
		}
	}

	healthy := newHarness(t, &cloudtest.Fake{Err: errors.New("boom")}, "eu-west-1")
	broken := newHarnessWithStore(t, &cloudtest.Fake{Err: errors.New("boom")}, "eu-west-1", failingStore{})
	assert.Equal(t, healthy.call(ToolListBuckets, nil), broken.call(ToolListBuckets, nil))
}

func TestDispatch_ListInstancesProjection(t *testing.T) {
	h := newHarness(t, populatedFake(), "eu-west-1")

	result := h.call(ToolListInstances, nil)

	require.True(t, result.OK())
	assert.Equal(t, map[string]any{
		"instances": []InstanceSummary{
			{InstanceID: "i-1", State: "running", Type: "t2.micro"},
			{InstanceID: "i-2", State: "stopped", Type: "t3.small"},
		},
	}, result.Payload)
}

func TestDispatch_EmptyListsEncodeAsArrays(t *testing.T) {
	h := newHarness(t, &cloudtest.Fake{}, "eu-west-1")

	expected := map[string]string{
		ToolListInstances: `{"instances":[]}`,
		ToolListBuckets:   `{"buckets":[]}`,
		ToolListFunctions: `{"functions":[]}`,
		ToolListLogGroups: `{"log_groups":[]}`,
	}

	for name, want := range expected {
		t.Run(name, func(t *testing.T) {
			result := h.call(name, nil)
			require.True(t, result.OK(), "unexpected error: %v", result.Err)

			encoded, err := json.Marshal(result.Payload)
			require.NoError(t, err)
			assert.JSONEq(t, want, string(encoded))
		})
	}
}

func TestDispatch_CreateInstance(t *testing.T) {
	fake := populatedFake()
	h := newHarness(t, fake, "eu-west-1", WithLaunchDefaults(LaunchDefaults{ImageID: "ami-custom"}))

	result := h.call(ToolCreateInstance, nil)

	require.True(t, result.OK())
	assert.Equal(t, map[string]any{"instance_id": "i-new"}, result.Payload)

	input, ok := fake.LastInput("RunInstances").(*ec2.RunInstancesInput)
	require.True(t, ok)
	assert.Equal(t, "ami-custom", aws.ToString(input.ImageId))
	assert.Equal(t, ec2types.InstanceTypeT2Micro, input.InstanceType)
	assert.Equal(t, int32(1), aws.ToInt32(input.MinCount))
	assert.Equal(t, int32(1), aws.ToInt32(input.MaxCount))
}

func TestDispatch_CreateInstanceWithoutInstances(t *testing.T) {
	h := newHarness(t, &cloudtest.Fake{}, "eu-west-1")

	result := h.call(ToolCreateInstance, nil)

	require.False(t, result.OK())
	assert.Equal(t, ErrCodeInternal, result.Err.Code)
}

func TestDispatch_TerminateInstance(t *testing.T) {
	fake := populatedFake()
	h := newHarness(t, fake, "eu-west-1")

	result := h.call(ToolTerminateInstance, Arguments{"instance_id": "i-1"})

	require.True(t, result.OK())
	assert.Equal(t, map[string]any{"terminated_instance_id": "i-1"}, result.Payload)

	input := fake.LastInput("TerminateInstances").(*ec2.TerminateInstancesInput)
	assert.Equal(t, []string{"i-1"}, input.InstanceIds)
}

func TestDispatch_CreateBucketLocation(t *testing.T) {
	tests := []struct {
		region     string
		constraint s3types.BucketLocationConstraint
	}{
		{"eu-west-1", s3types.BucketLocationConstraint("eu-west-1")},
		{"us-east-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			fake := populatedFake()
			h := newHarness(t, fake, tt.region)

			result := h.call(ToolCreateBucket, Arguments{"bucket_name": "reports"})

			require.True(t, result.OK())
			assert.Equal(t, map[string]any{"bucket_created": "reports"}, result.Payload)

			input := fake.LastInput("CreateBucket").(*s3.CreateBucketInput)
			assert.Equal(t, "reports", aws.ToString(input.Bucket))
			if tt.constraint == "" {
				assert.Nil(t, input.CreateBucketConfiguration)
			} else {
				require.NotNil(t, input.CreateBucketConfiguration)
				assert.Equal(t, tt.constraint, input.CreateBucketConfiguration.LocationConstraint)
			}
		})
	}
}

func TestDispatch_EstimatedCostWindow(t *testing.T) {
	fake := populatedFake()
	h := newHarness(t, fake, "eu-west-1")

	result := h.call(ToolEstimatedCost, nil)
	require.True(t, result.OK(), "unexpected error: %v", result.Err)

	input := fake.LastInput("GetCostAndUsage").(*costexplorer.GetCostAndUsageInput)
	require.NotNil(t, input.TimePeriod)
	assert.Equal(t, "2024-01-01", aws.ToString(input.TimePeriod.Start))
	assert.Equal(t, "2024-06-30", aws.ToString(input.TimePeriod.End))
	assert.Equal(t, cetypes.GranularityMonthly, input.Granularity)
	assert.Equal(t, []string{"UnblendedCost"}, input.Metrics)

	cost, ok := result.Payload["cost"].(map[string]any)
	require.True(t, ok, "cost must be a document, got %T", result.Payload["cost"])
	results, ok := cost["ResultsByTime"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	_, hasMetadata := cost["ResultMetadata"]
	assert.False(t, hasMetadata)

	encoded, err := json.Marshal(result.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"Amount":"12.34"`)
}

func TestDispatch_ListBudgets(t *testing.T) {
	t.Run("defaults to caller account", func(t *testing.T) {
		fake := populatedFake()
		h := newHarness(t, fake, "eu-west-1")

		result := h.call(ToolListBudgets, nil)
		require.True(t, result.OK(), "unexpected error: %v", result.Err)

		input := fake.LastInput("DescribeBudgets").(*budgets.DescribeBudgetsInput)
		assert.Equal(t, "123456789012", aws.ToString(input.AccountId))

		list, ok := result.Payload["budgets"].([]any)
		require.True(t, ok)
		require.Len(t, list, 1)

		budget := list[0].(map[string]any)
		assert.Equal(t, "monthly", budget["BudgetName"])
		assert.Equal(t, "COST", budget["BudgetType"])
		period := budget["TimePeriod"].(map[string]any)
		assert.Equal(t, "2024-01-01T00:00:00Z", period["Start"])
		assert.Equal(t, "2024-12-31T00:00:00Z", period["End"])
	})

	t.Run("explicit account skips identity lookup", func(t *testing.T) {
		fake := populatedFake()
		h := newHarness(t, fake, "eu-west-1")

		result := h.call(ToolListBudgets, Arguments{"account_id": "999999999999"})
		require.True(t, result.OK())

		assert.Nil(t, fake.LastInput("GetCallerIdentity"))
		input := fake.LastInput("DescribeBudgets").(*budgets.DescribeBudgetsInput)
		assert.Equal(t, "999999999999", aws.ToString(input.AccountId))
	})

	t.Run("no budgets", func(t *testing.T) {
		fake := populatedFake()
		fake.DescribeBudgets = nil
		h := newHarness(t, fake, "eu-west-1")

		result := h.call(ToolListBudgets, nil)
		require.True(t, result.OK())
		assert.Equal(t, []any{}, result.Payload["budgets"])
	})
}

func TestDispatch_FacadeErrorIsInternal(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not allowed"}
	failure := fmt.Errorf("operation error S3: ListBuckets, %w", apiErr)
	h := newHarness(t, &cloudtest.Fake{Err: failure}, "eu-west-1")

	result := h.call(ToolListBuckets, nil)

	require.False(t, result.OK())
	assert.Equal(t, ErrCodeInternal, result.Err.Code)
	assert.Equal(t, failure.Error(), result.Err.Message)
	assert.Equal(t, "AccessDenied", result.Err.Data["awsErrorCode"])

	code, _, _ := result.Err.ToJSONRPCError()
	assert.Equal(t, -32000, code)

	records := h.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, audit.ActionError, records[0].Action)
	assert.Equal(t, ToolListBuckets, records[0].Details["tool"])
	assert.Equal(t, failure.Error(), records[0].Details["error"])
}

func TestDispatch_HandlerPanicIsInternal(t *testing.T) {
	fake := &cloudtest.Fake{
		DescribeInstances: func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
			panic("nil map write")
		},
	}
	h := newHarness(t, fake, "eu-west-1")

	result := h.call(ToolListInstances, nil)

	require.False(t, result.OK())
	assert.Equal(t, ErrCodeInternal, result.Err.Code)
	assert.Contains(t, result.Err.Message, "panicked")
	assert.Contains(t, result.Err.Message, "nil map write")
}

func TestDispatch_SchemaValidation(t *testing.T) {
	t.Run("strict rejects ill-typed arguments", func(t *testing.T) {
		fake := populatedFake()
		h := newHarness(t, fake, "eu-west-1", WithSchemaValidation(true))

		result := h.call(ToolTerminateInstance, Arguments{"instance_id": float64(123)})

		require.False(t, result.OK())
		assert.Equal(t, ErrCodeInvalidParams, result.Err.Code)
		assert.Contains(t, result.Err.Message, "Invalid params:")
		assert.Zero(t, fake.CallCount())
	})

	t.Run("strict still reports missing fields by name", func(t *testing.T) {
		h := newHarness(t, populatedFake(), "eu-west-1", WithSchemaValidation(true))

		result := h.call(ToolCreateBucket, Arguments{})

		require.False(t, result.OK())
		assert.Equal(t, "bucket_name is required", result.Err.Message)
	})

	t.Run("strict accepts well-typed arguments", func(t *testing.T) {
		h := newHarness(t, populatedFake(), "eu-west-1", WithSchemaValidation(true))

		result := h.call(ToolTerminateInstance, Arguments{"instance_id": "i-1"})

		assert.True(t, result.OK(), "unexpected error: %v", result.Err)
	})

	t.Run("tolerant passes numbers through as text", func(t *testing.T) {
		fake := populatedFake()
		h := newHarness(t, fake, "eu-west-1")

		result := h.call(ToolTerminateInstance, Arguments{"instance_id": float64(123)})

		require.True(t, result.OK())
		input := fake.LastInput("TerminateInstances").(*ec2.TerminateInstancesInput)
		assert.Equal(t, []string{"123"}, input.InstanceIds)
	})
}

func TestDispatch_ConcurrentCalls(t *testing.T) {
	const rounds = 10
	h := newHarness(t, populatedFake(), "eu-west-1")
	names := make([]string, 0, h.dispatcher.Registry().Len())
	for _, desc := range h.dispatcher.Registry().List() {
		names = append(names, desc.Name)
	}

	type outcome struct {
		name   string
		result Result
	}
	outcomes := make(chan outcome, rounds*(len(names)+1))

	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		for _, name := range names {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				outcomes <- outcome{name, h.call(name, satisfiedArgs(name))}
			}(name)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- outcome{"no_such_tool", h.call("no_such_tool", nil)}
		}()
	}
	wg.Wait()
	close(outcomes)

	want := map[string]int{}
	for o := range outcomes {
		if o.name == "no_such_tool" {
			require.False(t, o.result.OK())
			assert.Equal(t, ErrCodeMethodNotFound, o.result.Err.Code)
			want[audit.ActionError]++
			continue
		}
		require.True(t, o.result.OK(), "%s: %v", o.name, o.result.Err)
		want[o.name]++
	}

	records := h.records(t)
	require.Len(t, records, rounds*(len(names)+1))

	got := map[string]int{}
	for _, r := range records {
		got[r.Action]++
	}
	assert.Equal(t, want, got)
	assert.Equal(t, rounds, want[ToolListBuckets])
}

func TestNewDispatcher_RequiresRegistry(t *testing.T) {
	_, err := NewDispatcher(nil, nil, nil)
	assert.Error(t, err)
}

func TestNewDispatcher_NilSinkDiscards(t *testing.T) {
	d, err := NewDispatcher(NewCatalog(), populatedFake().Facade("eu-west-1"), nil)
	require.NoError(t, err)

	result := d.Dispatch(context.Background(), CallRequest{Name: ToolListBuckets})
	assert.True(t, result.OK())
}
