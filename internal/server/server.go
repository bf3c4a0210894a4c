package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/ironsheep/exif-extractor-mcp/internal/config"
	"github.com/ironsheep/exif-extractor-mcp/internal/exif"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// ServerName is reported in serverInfo.
const ServerName = "exif-extractor-mcp"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Server handles MCP protocol communication
type Server struct {
	extractor *exif.Extractor
	defaults  config.Session
	logger    *slog.Logger
	version   string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`

	// nullID is set when the message carried "id": null, which is a
	// request, not a notification.
	nullID bool
}

// UnmarshalJSON records whether the id member was present.
func (r *MCPRequest) UnmarshalJSON(data []byte) error {
	type plain MCPRequest
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = MCPRequest(aux.plain)
	if aux.ID != nil {
		if err := json.Unmarshal(aux.ID, &r.ID); err != nil {
			return err
		}
		r.nullID = r.ID == nil
	}
	return nil
}

// isNotification reports whether the request carries no id member at all.
func (r *MCPRequest) isNotification() bool {
	return r.ID == nil && !r.nullID
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Options configures New.
type Options struct {
	// Extractor runs extract_exif. A default one is built when nil.
	Extractor *exif.Extractor

	// Defaults is the session config used by the stdio transport and as the
	// base for HTTP sessions.
	Defaults config.Session

	Logger  *slog.Logger
	Version string
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Extractor == nil {
		opts.Extractor = exif.NewExtractor(exif.ExtractorOptions{Logger: opts.Logger})
	}
	if opts.Defaults == (config.Session{}) {
		opts.Defaults = config.DefaultSession()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{
		extractor: opts.Extractor,
		defaults:  opts.Defaults,
		logger:    opts.Logger,
		version:   opts.Version,
	}
}

// Run serves the stdio transport until stdin closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC messages from r and writes responses
// to w. Every message runs with the server's default session config.
//
// A line longer than the session's message limit is consumed and answered
// with an error; the loop keeps serving the lines after it.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	limit := maxMessageBytes(s.defaults)
	encoder := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, oversized, readErr := readLine(reader, limit)

		var resp *MCPResponse
		switch {
		case oversized:
			resp = s.oversizedResponse(line, limit)
		case len(bytes.TrimSpace(line)) > 0:
			resp = s.HandleMessage(ctx, s.defaults, line)
		}
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", slog.String("error", err.Error()))
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read request: %w", readErr)
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is read through to its end but only its first limit bytes are kept,
// and oversized is set.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		content := chunk
		if err == nil {
			content = chunk[:len(chunk)-1]
		}
		if !oversized {
			if room := limit - len(line); len(content) > room {
				line = append(line, content[:room]...)
				oversized = true
			} else {
				line = append(line, content...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimSuffix(line, []byte("\r")), oversized, err
	}
}

// oversizedResponse answers a line that exceeded the message limit. The id
// and method are recovered from the kept prefix when they precede the
// payload; a tools/call then gets a payload_too_large tool error.
func (s *Server) oversizedResponse(prefix []byte, limit int) *MCPResponse {
	id, method := peekEnvelope(prefix)
	msg := fmt.Sprintf("request exceeds the %s message limit", exif.FormatBytes(int64(limit)))
	s.logger.Warn("request too large", slog.String("method", method), slog.Int("limit", limit))

	if id != nil && method == "tools/call" {
		return s.toolErrorResponse(id, exif.KindPayloadTooLarge, &exif.Error{
			Kind:    exif.KindPayloadTooLarge,
			Op:      "read request",
			Message: msg,
		})
	}
	return s.errorResponse(id, codeInvalidRequest, "Request too large", msg)
}

// peekEnvelope walks the top-level keys of a possibly truncated JSON object
// and returns the id and method it finds before the data runs out.
func peekEnvelope(prefix []byte) (id interface{}, method string) {
	dec := json.NewDecoder(bytes.NewReader(prefix))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, ""
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return id, method
		}
		key, _ := tok.(string)
		switch key {
		case "id", "method":
			val, err := dec.Token()
			if err != nil {
				return id, method
			}
			switch v := val.(type) {
			case string:
				if key == "method" {
					method = v
				} else {
					id = v
				}
			case float64:
				if key == "id" {
					id = v
				}
			case json.Delim:
				if err := skipComposite(dec); err != nil {
					return id, method
				}
			}
		default:
			if err := skipValue(dec); err != nil {
				return id, method
			}
		}
	}
	return id, method
}

// skipValue consumes one JSON value from dec.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if _, ok := tok.(json.Delim); ok {
		return skipComposite(dec)
	}
	return nil
}

// skipComposite consumes tokens until the object or array just opened is
// closed.
func skipComposite(dec *json.Decoder) error {
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
	return nil
}

// maxMessageBytes bounds a single message: the base64 form of the largest
// image the session accepts plus room for the envelope.
func maxMessageBytes(sess config.Session) int {
	const envelope = 1024 * 1024
	size := sess.MaxFileSize
	if size > config.MaxFileSizeLimit {
		size = config.MaxFileSizeLimit
	}
	n := (size+2)/3*4 + envelope
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// HandleMessage decodes one JSON-RPC message and dispatches it with the
// given session config. It returns nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, sess config.Session, data []byte) *MCPResponse {
	req, errResp := s.parseRequest(data)
	if errResp != nil {
		return errResp
	}
	return s.dispatch(ctx, sess, req)
}

// parseRequest decodes one message. On failure it returns the parse error
// response instead.
func (s *Server) parseRequest(data []byte) (*MCPRequest, *MCPResponse) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Warn("failed to parse request", slog.String("error", err.Error()))
		return nil, s.errorResponse(nil, codeParseError, "Parse error", err.Error())
	}
	return &req, nil
}

// dispatch validates the envelope and routes the request.
func (s *Server) dispatch(ctx context.Context, sess config.Session, req *MCPRequest) *MCPResponse {
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.isNotification() {
			return nil
		}
		return s.errorResponse(req.ID, codeInvalidRequest, "Invalid request", "jsonrpc must be \"2.0\" and method must be set")
	}
	return s.handleRequest(ctx, sess, req)
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, sess config.Session, req *MCPRequest) *MCPResponse {
	if req.isNotification() {
		// Client acknowledgments such as notifications/initialized need no
		// response; unknown notifications are dropped.
		s.logger.Debug("notification", slog.String("method", req.Method))
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, sess, req)
	case "resources/list":
		return s.handleResourcesList(req)
	case "resources/read":
		return s.handleResourcesRead(sess, req)
	case "prompts/list":
		return s.handlePromptsList(req)
	case "prompts/get":
		return s.handlePromptsGet(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools":     map[string]interface{}{},
				"resources": map[string]interface{}{},
				"prompts":   map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": s.version,
			},
		},
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{
		Code:    code,
		Message: message,
	}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}
