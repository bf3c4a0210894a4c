package server

// ToolExtractEXIF is the name of the extraction tool.
const ToolExtractEXIF = "extract_exif"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: ToolExtractEXIF,
			Description: "Extract EXIF metadata from a JPEG or PNG image given as an http(s) URL or a base64 data URI " +
				"(data:image/jpeg;base64,... or data:image/png;base64,...). Returns JSON with format, dimensions and color space, " +
				"plus camera settings and GPS position when the session enables them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_input": map[string]interface{}{
						"type":        "string",
						"description": "Image URL (http:// or https://) or data URI with base64 JPEG/PNG payload",
					},
				},
				"required": []string{"image_input"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
