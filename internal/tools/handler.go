package tools

import (
	"context"
)

// InvokeFunc performs the cloud call for a tool and returns the raw response
type InvokeFunc[R any] func(ctx context.Context, tc *ToolContext, args Arguments) (R, error)

// ProjectFunc reduces a raw response to the tool's fixed result shape
type ProjectFunc[R any] func(R) (map[string]any, error)

// Handler is the typed record behind one tool: argument validation, the
// cloud invocation and the result projection
type Handler struct {
	required []string
	run      func(ctx context.Context, tc *ToolContext, args Arguments) (map[string]any, error)
}

// NewHandler binds an invocation to its projection. Required names the
// arguments that must be present before the invocation may run.
func NewHandler[R any](invoke InvokeFunc[R], project ProjectFunc[R], required ...string) Handler {
	return Handler{
		required: required,
		run: func(ctx context.Context, tc *ToolContext, args Arguments) (map[string]any, error) {
			raw, err := invoke(ctx, tc, args)
			if err != nil {
				return nil, err
			}
			return project(raw)
		},
	}
}

// Required lists the argument names checked by Validate
func (h Handler) Required() []string {
	return h.required
}

// Validate checks tool-specific required arguments
func (h Handler) Validate(args Arguments) *ToolError {
	for _, field := range h.required {
		if !args.Present(field) {
			return NewToolError(ErrCodeInvalidParams, field+" is required", map[string]any{"field": field})
		}
	}
	return nil
}

// Run invokes the tool and projects its result
func (h Handler) Run(ctx context.Context, tc *ToolContext, args Arguments) (map[string]any, error) {
	return h.run(ctx, tc, args)
}

func (h Handler) valid() bool {
	return h.run != nil
}
