package tools

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// InstanceSummary is the projection of one EC2 instance
type InstanceSummary struct {
	InstanceID string `json:"instance_id"`
	State      string `json:"state"`
	Type       string `json:"type"`
}

func invokeDescribeInstances(ctx context.Context, tc *ToolContext, _ Arguments) (*ec2.DescribeInstancesOutput, error) {
	return tc.Cloud.Compute.DescribeInstances(ctx, &ec2.DescribeInstancesInput{})
}

func projectInstances(out *ec2.DescribeInstancesOutput) (map[string]any, error) {
	if out == nil {
		return nil, errNoResponse
	}

	instances := []InstanceSummary{}
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			summary := InstanceSummary{
				InstanceID: aws.ToString(instance.InstanceId),
				Type:       string(instance.InstanceType),
			}
			if instance.State != nil {
				summary.State = string(instance.State.Name)
			}
			instances = append(instances, summary)
		}
	}

	return map[string]any{"instances": instances}, nil
}

func invokeRunInstance(ctx context.Context, tc *ToolContext, _ Arguments) (*ec2.RunInstancesOutput, error) {
	return tc.Cloud.Compute.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:      aws.String(tc.Launch.ImageID),
		InstanceType: ec2types.InstanceType(tc.Launch.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
	})
}

func projectRunInstance(out *ec2.RunInstancesOutput) (map[string]any, error) {
	if out == nil {
		return nil, errNoResponse
	}
	if len(out.Instances) == 0 {
		return nil, errors.New("run instances returned no instances")
	}
	return map[string]any{"instance_id": aws.ToString(out.Instances[0].InstanceId)}, nil
}

// invokeTerminateInstance returns the id it was asked to terminate
func invokeTerminateInstance(ctx context.Context, tc *ToolContext, args Arguments) (string, error) {
	id := args.String("instance_id")
	if _, err := tc.Cloud.Compute.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	}); err != nil {
		return "", err
	}
	return id, nil
}

func projectTerminated(id string) (map[string]any, error) {
	return map[string]any{"terminated_instance_id": id}, nil
}
