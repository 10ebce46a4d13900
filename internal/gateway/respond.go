package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/erauner12/cloudbridge/internal/jsonrpc"
	"github.com/erauner12/cloudbridge/internal/tools"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeResult sends a JSON-RPC success envelope
func writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	encoded, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode json-rpc result")
		writeError(w, id, jsonrpc.InternalError, "failed to encode result", nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonrpc.NewResult(id, encoded))
}

// writeError sends a JSON-RPC error envelope. JSON-RPC errors are still HTTP 200.
func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string, data json.RawMessage) {
	writeJSON(w, http.StatusOK, jsonrpc.NewError(id, code, message, data))
}

// writeToolError translates a tool error into its JSON-RPC form
func writeToolError(w http.ResponseWriter, id json.RawMessage, toolErr *tools.ToolError) {
	code, message, data := toolErr.ToJSONRPCError()
	writeError(w, id, code, message, data)
}
