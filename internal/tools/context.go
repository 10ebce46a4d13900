package tools

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/erauner12/cloudbridge/internal/cloud"
)

// LaunchDefaults are the fixed parameters of create_ec2_instance
type LaunchDefaults struct {
	ImageID      string
	InstanceType string
}

// DefaultLaunch matches the catalog description of create_ec2_instance
var DefaultLaunch = LaunchDefaults{
	ImageID:      "ami-0fc5d935ebf8bc3bc",
	InstanceType: "t2.micro",
}

// ToolContext provides shared resources for tool handlers
type ToolContext struct {
	Logger *zerolog.Logger
	Cloud  *cloud.Facade
	Launch LaunchDefaults
	Now    func() time.Time
}

// Region returns the region the facade clients were built for
func (tc *ToolContext) Region() string {
	if tc.Cloud == nil {
		return ""
	}
	return tc.Cloud.Region
}

func (tc *ToolContext) now() time.Time {
	if tc.Now == nil {
		return time.Now().UTC()
	}
	return tc.Now().UTC()
}
