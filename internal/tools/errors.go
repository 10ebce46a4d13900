package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/erauner12/cloudbridge/internal/jsonrpc"
)

// ToolError represents a structured error from validation or tool execution
type ToolError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode categorizes tool errors for JSON-RPC translation
type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"  // malformed or semantically wrong envelope
	ErrCodeInvalidParams  ErrorCode = "INVALID_PARAMS"   // missing or ill-typed arguments
	ErrCodeMethodNotFound ErrorCode = "METHOD_NOT_FOUND" // unknown method or tool
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"   // the cloud call failed
)

// NewToolError creates a tool error with optional data
func NewToolError(code ErrorCode, message string, data map[string]any) *ToolError {
	return &ToolError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// WrapFacadeError converts any failure raised while executing a tool into a
// ToolError. ToolErrors pass through unchanged; everything else (network,
// permission, throttling, malformed response) is an internal error whose
// message is the stringified cause. AWS API error codes are kept as data.
func WrapFacadeError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	var data map[string]any
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		data = map[string]any{
			"awsErrorCode": apiErr.ErrorCode(),
		}
	}

	return NewToolError(ErrCodeInternal, err.Error(), data)
}

// ToJSONRPCError converts ToolError to JSON-RPC error code
func (e *ToolError) ToJSONRPCError() (int, string, json.RawMessage) {
	var code int
	switch e.Code {
	case ErrCodeInvalidRequest:
		code = jsonrpc.InvalidRequest
	case ErrCodeInvalidParams:
		code = jsonrpc.InvalidParams
	case ErrCodeMethodNotFound:
		code = jsonrpc.MethodNotFound
	default:
		code = jsonrpc.ToolExecution
	}

	var data json.RawMessage
	if e.Data != nil {
		dataBytes, _ := json.Marshal(e.Data)
		data = dataBytes
	}

	return code, e.Message, data
}
