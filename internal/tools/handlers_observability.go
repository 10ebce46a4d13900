package tools

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

func invokeListFunctions(ctx context.Context, tc *ToolContext, _ Arguments) (*lambda.ListFunctionsOutput, error) {
	return tc.Cloud.Functions.ListFunctions(ctx, &lambda.ListFunctionsInput{})
}

func projectFunctions(out *lambda.ListFunctionsOutput) (map[string]any, error) {
	if out == nil {
		return nil, errNoResponse
	}

	names := make([]string, 0, len(out.Functions))
	for _, fn := range out.Functions {
		names = append(names, aws.ToString(fn.FunctionName))
	}
	return map[string]any{"functions": names}, nil
}

func invokeDescribeLogGroups(ctx context.Context, tc *ToolContext, _ Arguments) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	return tc.Cloud.Logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{})
}

func projectLogGroups(out *cloudwatchlogs.DescribeLogGroupsOutput) (map[string]any, error) {
	if out == nil {
		return nil, errNoResponse
	}

	names := make([]string, 0, len(out.LogGroups))
	for _, group := range out.LogGroups {
		names = append(names, aws.ToString(group.LogGroupName))
	}
	return map[string]any{"log_groups": names}, nil
}
