package tools

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// regionWithoutConstraint is the only region that rejects a LocationConstraint
const regionWithoutConstraint = "us-east-1"

func invokeListBuckets(ctx context.Context, tc *ToolContext, _ Arguments) (*s3.ListBucketsOutput, error) {
	return tc.Cloud.Storage.ListBuckets(ctx, &s3.ListBucketsInput{})
}

func projectBuckets(out *s3.ListBucketsOutput) (map[string]any, error) {
	if out == nil {
		return nil, errNoResponse
	}

	names := make([]string, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		names = append(names, aws.ToString(bucket.Name))
	}
	return map[string]any{"buckets": names}, nil
}

// invokeCreateBucket returns the name of the bucket it created
func invokeCreateBucket(ctx context.Context, tc *ToolContext, args Arguments) (string, error) {
	name := args.String("bucket_name")
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if region := tc.Region(); region != "" && region != regionWithoutConstraint {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	if _, err := tc.Cloud.Storage.CreateBucket(ctx, input); err != nil {
		return "", err
	}
	return name, nil
}

func projectCreatedBucket(name string) (map[string]any, error) {
	return map[string]any{"bucket_created": name}, nil
}
