package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/erauner12/cloudbridge/internal/tools"
)

// MethodToolsCall is the method every tool invocation envelope carries
const MethodToolsCall = "tools/call"

// Policy selects how strictly a tools/call envelope is checked
type Policy struct {
	ExpectedMethod string
	CheckMethod    bool // reject envelopes whose method is present and differs
	StrictParams   bool // reject ill-typed params instead of substituting empties
}

// TolerantPolicy accepts anything that names a tool
func TolerantPolicy() Policy {
	return Policy{ExpectedMethod: MethodToolsCall}
}

// ValidationKind classifies a rejected envelope
type ValidationKind int

const (
	MissingName ValidationKind = iota + 1
	MethodMismatch
	InvalidParams
)

func (k ValidationKind) String() string {
	switch k {
	case MissingName:
		return "missing_name"
	case MethodMismatch:
		return "method_mismatch"
	case InvalidParams:
		return "invalid_params"
	default:
		return "unknown"
	}
}

// ValidationError is a protocol-boundary rejection. It never reaches the
// dispatcher and is never audited.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ToolError maps the rejection onto the tool error taxonomy
func (e *ValidationError) ToolError() *tools.ToolError {
	if e.Kind == MethodMismatch {
		return tools.NewToolError(tools.ErrCodeInvalidRequest, e.Message, nil)
	}
	return tools.NewToolError(tools.ErrCodeInvalidParams, e.Message, nil)
}

type parseState int

const (
	stateDecode parseState = iota
	stateFallback
	stateID
	stateMethod
	stateParams
	stateName
	stateArguments
	stateDone
)

type parser struct {
	raw    []byte
	policy Policy

	doc    map[string]json.RawMessage
	params map[string]json.RawMessage
	req    tools.CallRequest
	err    *ValidationError
}

// Parse validates a raw tools/call body. The returned request carries the
// envelope id even when err is non-nil so the rejection can be correlated.
// Parse has no side effects.
func Parse(raw []byte, policy Policy) (tools.CallRequest, *ValidationError) {
	p := &parser{raw: raw, policy: policy}

	state := stateDecode
	for state != stateDone {
		state = p.step(state)
	}

	return p.req, p.err
}

func (p *parser) step(state parseState) parseState {
	switch state {
	case stateDecode:
		// A body that is not a JSON object is handled as an empty document
		if err := json.Unmarshal(p.raw, &p.doc); err != nil || p.doc == nil {
			return stateFallback
		}
		return stateID

	case stateFallback:
		p.doc = map[string]json.RawMessage{}
		return stateID

	case stateID:
		if id, ok := p.doc["id"]; ok && json.Valid(id) {
			p.req.ID = id
		}
		var version string
		if json.Unmarshal(p.doc["jsonrpc"], &version) == nil {
			p.req.ProtocolVersion = version
		}
		return stateMethod

	case stateMethod:
		rawMethod, ok := p.doc["method"]
		if !p.policy.CheckMethod || !ok || isNull(rawMethod) {
			return stateParams
		}
		var method string
		if err := json.Unmarshal(rawMethod, &method); err != nil {
			method = string(rawMethod)
		}
		if method != p.policy.ExpectedMethod {
			return p.fail(MethodMismatch, fmt.Sprintf("Method mismatch: expected %s, got %s", p.policy.ExpectedMethod, method))
		}
		return stateParams

	case stateParams:
		rawParams, ok := p.doc["params"]
		if !ok || isNull(rawParams) {
			p.params = map[string]json.RawMessage{}
			return stateName
		}
		if err := json.Unmarshal(rawParams, &p.params); err != nil || p.params == nil {
			if p.policy.StrictParams {
				return p.fail(InvalidParams, "Invalid params: params must be an object")
			}
			p.params = map[string]json.RawMessage{}
		}
		return stateName

	case stateName:
		rawName, ok := p.params["name"]
		if ok && !isNull(rawName) {
			if err := json.Unmarshal(rawName, &p.req.Name); err != nil {
				if p.policy.StrictParams {
					return p.fail(InvalidParams, "Invalid params: name must be a string")
				}
				p.req.Name = ""
			}
		}
		if p.req.Name == "" {
			return p.fail(MissingName, "Missing tool name")
		}
		return stateArguments

	case stateArguments:
		p.req.Arguments = tools.Arguments{}
		rawArgs, ok := p.params["arguments"]
		if !ok || isNull(rawArgs) {
			return stateDone
		}
		var args map[string]any
		if err := json.Unmarshal(rawArgs, &args); err != nil || args == nil {
			if p.policy.StrictParams {
				msg := "arguments must be an object"
				if err != nil {
					msg = err.Error()
				}
				return p.fail(InvalidParams, "Invalid params: "+msg)
			}
			return stateDone
		}
		p.req.Arguments = args
		return stateDone
	}

	return stateDone
}

func (p *parser) fail(kind ValidationKind, message string) parseState {
	p.err = &ValidationError{Kind: kind, Message: message}
	return stateDone
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
