package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ironsheep/exif-extractor-mcp/internal/config"
	"github.com/ironsheep/exif-extractor-mcp/internal/exif"
	"github.com/ironsheep/exif-extractor-mcp/internal/imaging"
)

// ResourceSupportedFormats describes what extract_exif accepts and returns.
const ResourceSupportedFormats = "exif://supported-formats"

// Resource represents an MCP resource definition
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// ResourceContents is one entry of a resources/read result.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// GetResourceDefinitions returns all available resources
func GetResourceDefinitions() []Resource {
	return []Resource{
		{
			URI:         ResourceSupportedFormats,
			Name:        "Supported formats",
			Description: "Image formats accepted by extract_exif, the fields it can return and the size limit",
			MimeType:    "text/markdown",
		},
	}
}

func (s *Server) handleResourcesList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"resources": GetResourceDefinitions(),
		},
	}
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(sess config.Session, req *MCPRequest) *MCPResponse {
	var params resourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	switch params.URI {
	case ResourceSupportedFormats:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"contents": []ResourceContents{{
					URI:      ResourceSupportedFormats,
					MimeType: "text/markdown",
					Text:     supportedFormatsMarkdown(sess),
				}},
			},
		}
	default:
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", fmt.Sprintf("unknown resource: %s", params.URI))
	}
}

// supportedFormatsMarkdown renders the supported-formats resource for the
// session's limits.
func supportedFormatsMarkdown(sess config.Session) string {
	var b strings.Builder

	b.WriteString("# Supported Image Formats\n\n")
	for _, f := range []imaging.Format{imaging.FormatJPEG, imaging.FormatPNG} {
		fmt.Fprintf(&b, "- **%s** (`%s`)\n", f, f.MediaType())
	}

	b.WriteString("\n## Input\n\n")
	b.WriteString("- `http://` or `https://` URL\n")
	b.WriteString("- data URI: `data:image/jpeg;base64,...` or `data:image/png;base64,...`\n")
	b.WriteString("\nThe format is detected from the file's leading bytes, not from its name or declared type.\n")

	b.WriteString("\n## Returned Fields\n\n")
	writeFieldList(&b, "Always", exif.StructuralFields)
	writeFieldList(&b, "Technical (include_technical)", exif.TechnicalFields)
	writeFieldList(&b, "Location (include_location)", exif.LocationFields)

	b.WriteString("\n## Limits\n\n")
	fmt.Fprintf(&b, "- Maximum file size: %s\n", exif.FormatBytes(sess.MaxFileSize))
	fmt.Fprintf(&b, "- URL fetch timeout: %ds\n", sess.Timeout)

	b.WriteString("\n## Notes\n\n")
	b.WriteString("- Many images (screenshots, edited or re-encoded files) carry no EXIF metadata; the result then has `has_exif: false`.\n")
	b.WriteString("- Fields missing from the image are omitted, never returned as null.\n")
	return b.String()
}

func writeFieldList(b *strings.Builder, title string, fields []string) {
	fmt.Fprintf(b, "- %s: ", title)
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "`%s`", f)
	}
	b.WriteString("\n")
}
