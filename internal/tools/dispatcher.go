package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/erauner12/cloudbridge/internal/audit"
	"github.com/erauner12/cloudbridge/internal/cloud"
)

// Dispatcher resolves a validated call to its tool, checks the arguments,
// invokes the facade and audits the outcome. Every path yields exactly one
// Result; facade errors and handler panics become internal errors.
type Dispatcher struct {
	registry *Registry
	cloud    *cloud.Facade
	sink     audit.Sink
	launch   LaunchDefaults
	now      func() time.Time
	strict   bool
	schemas  map[string]*gojsonschema.Schema
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLaunchDefaults overrides the AMI and instance type used by create_ec2_instance
func WithLaunchDefaults(launch LaunchDefaults) DispatcherOption {
	return func(d *Dispatcher) {
		if launch.ImageID != "" {
			d.launch.ImageID = launch.ImageID
		}
		if launch.InstanceType != "" {
			d.launch.InstanceType = launch.InstanceType
		}
	}
}

// WithClock sets the clock used for date-relative queries
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSchemaValidation validates arguments against each tool's input schema
// in addition to the required-field checks
func WithSchemaValidation(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.strict = enabled
	}
}

// NewDispatcher creates a dispatcher over registry. A nil sink disables auditing.
func NewDispatcher(registry *Registry, facade *cloud.Facade, sink audit.Sink, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if sink == nil {
		sink = audit.Discard{}
	}

	d := &Dispatcher{
		registry: registry,
		cloud:    facade,
		sink:     sink,
		launch:   DefaultLaunch,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.strict {
		schemas, err := compileSchemas(registry)
		if err != nil {
			return nil, err
		}
		d.schemas = schemas
	}

	return d, nil
}

// Registry returns the catalog the dispatcher resolves against
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes one tool call
func (d *Dispatcher) Dispatch(ctx context.Context, req CallRequest) Result {
	logger := zerolog.Ctx(ctx).With().Str("tool", req.Name).Logger()

	tool, ok := d.registry.Lookup(req.Name)
	if !ok {
		toolErr := NewToolError(ErrCodeMethodNotFound, "Unknown tool: "+req.Name, nil)
		logger.Warn().Msg("unknown tool requested")
		d.recordFailure(ctx, req.Name, toolErr)
		return Failure(toolErr)
	}

	args := req.Arguments
	if args == nil {
		args = Arguments{}
	}

	// Rejected arguments are a protocol-boundary error and are not audited
	if toolErr := tool.Handler.Validate(args); toolErr != nil {
		logger.Debug().Str("error", toolErr.Message).Msg("tool arguments rejected")
		return Failure(toolErr)
	}
	if toolErr := d.validateSchema(req.Name, args); toolErr != nil {
		logger.Debug().Str("error", toolErr.Message).Msg("tool arguments failed schema validation")
		return Failure(toolErr)
	}

	tc := &ToolContext{
		Logger: &logger,
		Cloud:  d.cloud,
		Launch: d.launch,
		Now:    d.now,
	}

	start := time.Now()
	payload, err := d.invoke(ctx, tc, tool, args)
	duration := time.Since(start)
	if err != nil {
		toolErr := WrapFacadeError(err)
		logger.Error().
			Err(err).
			Dur("duration", duration).
			Msg("tool call failed")
		d.recordFailure(ctx, req.Name, toolErr)
		return Failure(toolErr)
	}

	logger.Info().
		Dur("duration", duration).
		Msg("tool call completed")
	d.sink.Record(ctx, req.Name, payload)

	return Success(payload)
}

// invoke runs the handler, converting a panic into an error
func (d *Dispatcher) invoke(ctx context.Context, tc *ToolContext, tool *Tool, args Arguments) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("tool %s panicked: %v", tool.Definition.Name, r)
		}
	}()

	return tool.Handler.Run(ctx, tc, args)
}

func (d *Dispatcher) recordFailure(ctx context.Context, name string, toolErr *ToolError) {
	d.sink.Record(ctx, audit.ActionError, map[string]any{
		"tool":  name,
		"error": toolErr.Message,
	})
}

func compileSchemas(registry *Registry) (map[string]*gojsonschema.Schema, error) {
	schemas := make(map[string]*gojsonschema.Schema, registry.Len())
	for _, desc := range registry.List() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(desc.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("failed to compile input schema for %s: %w", desc.Name, err)
		}
		schemas[desc.Name] = schema
	}
	return schemas, nil
}

func (d *Dispatcher) validateSchema(name string, args Arguments) *ToolError {
	schema, ok := d.schemas[name]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(args)))
	if err != nil {
		return NewToolError(ErrCodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return NewToolError(ErrCodeInvalidParams, "Invalid params: "+strings.Join(problems, "; "), map[string]any{
		"errors": problems,
	})
}
