package server

import (
	"encoding/json"
	"fmt"
)

// PromptAnalyzePhoto asks the model to run extract_exif and summarise it.
const PromptAnalyzePhoto = "analyze_photo_metadata"

// Prompt represents an MCP prompt definition
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}

// PromptArgument describes one prompt parameter.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// PromptMessage is one message of a prompts/get result.
type PromptMessage struct {
	Role    string        `json:"role"`
	Content PromptContent `json:"content"`
}

// PromptContent is the text body of a PromptMessage.
type PromptContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GetPromptDefinitions returns all available prompts
func GetPromptDefinitions() []Prompt {
	return []Prompt{
		{
			Name:        PromptAnalyzePhoto,
			Description: "Extract a photo's EXIF metadata and summarise how and where it was taken",
			Arguments: []PromptArgument{
				{
					Name:        "image_input",
					Description: "Image URL or base64 data URI",
					Required:    true,
				},
			},
		},
	}
}

func (s *Server) handlePromptsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"prompts": GetPromptDefinitions(),
		},
	}
}

type promptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

func (s *Server) handlePromptsGet(req *MCPRequest) *MCPResponse {
	var params promptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	switch params.Name {
	case PromptAnalyzePhoto:
		input := params.Arguments["image_input"]
		if input == "" {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", "missing required argument image_input")
		}
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"description": "Analyse photo metadata",
				"messages": []PromptMessage{{
					Role: "user",
					Content: PromptContent{
						Type: "text",
						Text: analyzePhotoText(input),
					},
				}},
			},
		}
	default:
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", fmt.Sprintf("unknown prompt: %s", params.Name))
	}
}

func analyzePhotoText(input string) string {
	return fmt.Sprintf("Call the %s tool with image_input set to the image below, then summarise the result: "+
		"the camera and lens, when the photo was taken, the exposure settings, and the location if one is present. "+
		"If the image has no EXIF metadata, say so and describe only its format and dimensions.\n\nimage_input: %s",
		ToolExtractEXIF, input)
}
