package tools

// Tool names
const (
	ToolListInstances     = "list_ec2_instances"
	ToolCreateInstance    = "create_ec2_instance"
	ToolTerminateInstance = "terminate_ec2_instance"
	ToolListBuckets       = "list_s3_buckets"
	ToolCreateBucket      = "create_s3_bucket"
	ToolListFunctions     = "list_lambda_functions"
	ToolListLogGroups     = "list_log_groups"
	ToolEstimatedCost     = "get_estimated_cost"
	ToolListBudgets       = "list_budgets"
)

// RegisterAllTools registers all available tools with the registry
func RegisterAllTools(r *Registry) {
	// EC2 tools
	registerComputeTools(r)

	// S3 tools
	registerStorageTools(r)

	// Lambda and CloudWatch tools
	registerObservabilityTools(r)

	// Cost Explorer and Budgets tools
	registerBillingTools(r)
}

// NewCatalog returns a registry holding the full tool catalog
func NewCatalog() *Registry {
	r := NewRegistry()
	RegisterAllTools(r)
	return r
}

func registerComputeTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        ToolListInstances,
		Description: "List all EC2 instances in the configured region.",
		InputSchema: NoArgsSchema(),
	}, NewHandler(invokeDescribeInstances, projectInstances))

	r.MustRegister(ToolDefinition{
		Name:        ToolCreateInstance,
		Description: "Create a t2.micro EC2 instance with a default AMI.",
		InputSchema: NoArgsSchema(),
	}, NewHandler(invokeRunInstance, projectRunInstance))

	r.MustRegister(ToolDefinition{
		Name:        ToolTerminateInstance,
		Description: "Terminate an EC2 instance by instance_id.",
		InputSchema: SingleStringSchema("instance_id", true),
	}, NewHandler(invokeTerminateInstance, projectTerminated, "instance_id"))
}

func registerStorageTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        ToolListBuckets,
		Description: "List all S3 buckets.",
		InputSchema: NoArgsSchema(),
	}, NewHandler(invokeListBuckets, projectBuckets))

	r.MustRegister(ToolDefinition{
		Name:        ToolCreateBucket,
		Description: "Create an S3 bucket with the given name.",
		InputSchema: SingleStringSchema("bucket_name", true),
	}, NewHandler(invokeCreateBucket, projectCreatedBucket, "bucket_name"))
}

func registerObservabilityTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        ToolListFunctions,
		Description: "List Lambda functions.",
		InputSchema: NoArgsSchema(),
	}, NewHandler(invokeListFunctions, projectFunctions))

	r.MustRegister(ToolDefinition{
		Name:        ToolListLogGroups,
		Description: "List CloudWatch log groups.",
		InputSchema: NoArgsSchema(),
	}, NewHandler(invokeDescribeLogGroups, projectLogGroups))
}

func registerBillingTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        ToolEstimatedCost,
		Description: "Get monthly AWS cost for the last 6 months.",
		InputSchema: NoArgsSchema(),
	}, NewHandler(invokeCostAndUsage, projectCost))

	r.MustRegister(ToolDefinition{
		Name:        ToolListBudgets,
		Description: "List AWS budgets for the current account.",
		InputSchema: SingleStringSchema("account_id", false),
	}, NewHandler(invokeDescribeBudgets, projectBudgets))
}
