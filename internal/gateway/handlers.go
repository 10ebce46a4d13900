package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/erauner12/cloudbridge/internal/audit"
	"github.com/erauner12/cloudbridge/internal/jsonrpc"
)

// mcpProtocolVersion is returned by initialize
const mcpProtocolVersion = "2025-03-26"

// Unified endpoint methods
const (
	methodInitialize = "initialize"
	methodPing       = "ping"
	methodToolsList  = "tools/list"
)

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mcp":    "server running",
	})
}

// handleListGet handles GET /mcp/tools/list. There is no envelope, so the
// id is always null and nothing is audited.
func (s *Server) handleListGet(w http.ResponseWriter, r *http.Request) {
	writeResult(w, nil, s.toolsResult())
}

// handleListPost handles POST /mcp/tools/list. The body is optional.
func (s *Server) handleListPost(w http.ResponseWriter, r *http.Request) {
	var req jsonrpc.Request
	if body := readBody(r); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("tools/list body ignored")
		}
	}

	s.listTools(w, r, req.ID)
}

// handleCall handles POST /mcp/tools/call
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	s.callTool(w, r, readBody(r))
}

// handleMCP handles POST /mcp, routing by method
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, jsonrpc.ParseError, "invalid JSON", nil)
		return
	}

	// Validate JSON-RPC version
	if req.JSONRPC != jsonrpc.Version {
		writeError(w, req.ID, jsonrpc.InvalidRequest, "invalid jsonrpc version", nil)
		return
	}

	logger := log.Ctx(r.Context()).With().Str("method", req.Method).Logger()

	// Notifications get no response body
	if req.IsNotification() && strings.HasPrefix(req.Method, "notifications/") {
		logger.Debug().Msg("notification received")
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case methodInitialize:
		writeResult(w, req.ID, map[string]any{
			"protocolVersion": mcpProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": s.info,
		})

	case methodPing:
		writeResult(w, req.ID, map[string]any{
			"status": "ok",
		})

	case methodToolsList:
		s.listTools(w, r, req.ID)

	case MethodToolsCall:
		s.callTool(w, r, body)

	default:
		logger.Debug().Msg("unknown method")
		writeError(w, req.ID, jsonrpc.MethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (s *Server) toolsResult() map[string]any {
	return map[string]any{
		"tools": s.registry.List(),
	}
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request, id json.RawMessage) {
	result := s.toolsResult()
	s.audit.Record(r.Context(), audit.ActionToolsList, map[string]any{
		"tool_count": s.registry.Len(),
	})
	writeResult(w, id, result)
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()

	req, verr := Parse(body, s.policy)
	if verr != nil {
		log.Ctx(ctx).Debug().
			Str("kind", verr.Kind.String()).
			Str("error", verr.Message).
			Msg("tools/call rejected")
		writeToolError(w, req.ID, verr.ToolError())
		return
	}

	result := s.dispatcher.Dispatch(ctx, req)
	if !result.OK() {
		writeToolError(w, req.ID, result.Err)
		return
	}

	writeResult(w, req.ID, map[string]any{
		"content": result.Payload,
	})
}

// readBody drains the request body, which RequestSize has already capped.
// A failed read yields an empty body, which the tolerant parser treats like
// any other unusable document.
func readBody(r *http.Request) []byte {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to read request body")
		return nil
	}
	return body
}
