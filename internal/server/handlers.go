package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ironsheep/exif-extractor-mcp/internal/config"
	"github.com/ironsheep/exif-extractor-mcp/internal/exif"
)

// errInvalidParams marks tool failures caused by the call itself (unknown
// tool, malformed or missing arguments) rather than by the image.
var errInvalidParams = errors.New("invalid params")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke ("extract_exif").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// toolError is the text payload of a failed extraction.
type toolError struct {
	Error struct {
		Kind    exif.Kind `json:"kind"`
		Message string    `json:"message"`
	} `json:"error"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Extraction failures are tool results with "isError": true and a text of
// {"error":{"kind":...,"message":...}}. Unknown tools and bad arguments are
// JSON-RPC errors with code -32602; anything else is -32000.
func (s *Server) handleToolsCall(ctx context.Context, sess config.Session, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, sess, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidParams) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		if kind := exif.KindOf(err); kind != "" {
			return s.toolErrorResponse(req.ID, kind, err)
		}
		s.logger.Error("tool execution failed", slog.String("tool", params.Name), slog.String("error", err.Error()))
		return s.errorResponse(req.ID, codeServerError, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// toolErrorResponse reports a domain failure inside a successful JSON-RPC
// response so the model can read and react to it.
func (s *Server) toolErrorResponse(id interface{}, kind exif.Kind, err error) *MCPResponse {
	var payload toolError
	payload.Error.Kind = kind
	payload.Error.Message = err.Error()

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(payload),
				},
			},
			"isError": true,
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, sess config.Session, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case ToolExtractEXIF:
		return s.handleExtractEXIF(ctx, sess, args)
	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errInvalidParams, name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type extractEXIFArgs struct {
	ImageInput *string `json:"image_input"`
}

func (s *Server) handleExtractEXIF(ctx context.Context, sess config.Session, args json.RawMessage) (interface{}, error) {
	var a extractEXIFArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}
	if a.ImageInput == nil {
		return nil, fmt.Errorf("%w: missing required argument image_input", errInvalidParams)
	}
	return s.extractor.Extract(ctx, *a.ImageInput, sess.FetchPolicy(), sess.Options())
}
