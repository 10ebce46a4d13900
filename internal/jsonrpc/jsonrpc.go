package jsonrpc

import "encoding/json"

// Version is the only protocol version the gateway speaks
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes plus the server-defined tool failure code
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	ToolExecution  = -32000 // Implementation-defined server error: a tool failed while executing
)

// Request is a JSON-RPC request envelope
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id at all.
// An explicit null id is still an id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is a JSON-RPC response envelope. ID is always written so that
// a missing correlation token is echoed as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a response
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NullID is the id echoed when a request has none
var NullID = json.RawMessage("null")

// NormalizeID returns id unchanged when it is valid JSON, and null otherwise
func NormalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 || !json.Valid(id) {
		return NullID
	}
	return id
}

// NewResult builds a success response around an already encoded result
func NewResult(id json.RawMessage, result json.RawMessage) Response {
	return Response{
		JSONRPC: Version,
		ID:      NormalizeID(id),
		Result:  result,
	}
}

// NewError builds an error response
func NewError(id json.RawMessage, code int, message string, data json.RawMessage) Response {
	return Response{
		JSONRPC: Version,
		ID:      NormalizeID(id),
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
