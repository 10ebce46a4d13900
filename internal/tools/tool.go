package tools

import (
	"encoding/json"
	"fmt"
)

// ToolDefinition describes a tool with its name, description, and JSON schema
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolDescriptor is returned by tools/list (MCP specification format)
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// CallRequest is a validated tools/call request
type CallRequest struct {
	ProtocolVersion string
	ID              json.RawMessage // echoed back untouched; nil when absent
	Name            string
	Arguments       Arguments
}

// Arguments are the decoded tool arguments
type Arguments map[string]any

// String returns the argument as text. Numbers and booleans are rendered,
// anything else (absent, null, objects) yields "".
func (a Arguments) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case float64, bool, json.Number, int, int64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Present reports whether key carries a usable value. Empty strings and
// nulls count as missing.
func (a Arguments) Present(key string) bool {
	return a.String(key) != ""
}

// Result is the outcome of one dispatch: either a payload or an error,
// never both
type Result struct {
	Payload map[string]any
	Err     *ToolError
}

// OK reports whether the call succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Success wraps a payload
func Success(payload map[string]any) Result {
	return Result{Payload: payload}
}

// Failure wraps an error
func Failure(err *ToolError) Result {
	return Result{Err: err}
}
