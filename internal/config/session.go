package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ironsheep/exif-extractor-mcp/internal/exif"
)

// ErrInvalidSession is wrapped by every session validation failure.
var ErrInvalidSession = errors.New("invalid session config")

// Default session values.
const (
	DefaultTimeoutSeconds   = 30
	DefaultMaxFileSize      = 50 * 1024 * 1024
	DefaultIncludeTechnical = true
	DefaultIncludeLocation  = false
)

// Upper bounds accepted by the session schema. They keep the byte and
// duration arithmetic downstream well inside int64.
const (
	MaxTimeoutSeconds       = 3600
	MaxFileSizeLimit  int64 = 1 << 32
)

// Session is the per-session configuration applied to every extract_exif
// call. It is fixed when the session is created.
type Session struct {
	// Timeout is the URL fetch deadline in seconds.
	Timeout int `json:"timeout" mapstructure:"timeout"`

	// MaxFileSize is the image size cap in bytes, for URLs and data URIs.
	MaxFileSize int64 `json:"max_file_size" mapstructure:"max_file_size"`

	// IncludeTechnical enables camera and capture-setting fields.
	IncludeTechnical bool `json:"include_technical" mapstructure:"include_technical"`

	// IncludeLocation enables GPS fields.
	IncludeLocation bool `json:"include_location" mapstructure:"include_location"`
}

// DefaultSession returns the built-in defaults.
func DefaultSession() Session {
	return Session{
		Timeout:          DefaultTimeoutSeconds,
		MaxFileSize:      DefaultMaxFileSize,
		IncludeTechnical: DefaultIncludeTechnical,
		IncludeLocation:  DefaultIncludeLocation,
	}
}

// FetchPolicy converts the session limits for the extractor.
func (s Session) FetchPolicy() exif.FetchPolicy {
	return exif.FetchPolicy{
		Timeout:  time.Duration(s.Timeout) * time.Second,
		MaxBytes: s.MaxFileSize,
	}
}

// Options converts the session field-group flags for the extractor.
func (s Session) Options() exif.Options {
	return exif.Options{
		IncludeTechnical: s.IncludeTechnical,
		IncludeLocation:  s.IncludeLocation,
	}
}

// SessionSchema returns the JSON Schema of a session config document. It is
// served at /.well-known/mcp-config and used by ValidateSession.
func SessionSchema() map[string]any {
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                "EXIF Extractor session configuration",
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"timeout": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     MaxTimeoutSeconds,
				"default":     DefaultTimeoutSeconds,
				"description": "Request timeout in seconds for fetching images from URLs",
			},
			"max_file_size": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     MaxFileSizeLimit,
				"default":     DefaultMaxFileSize,
				"description": "Maximum file size in bytes",
			},
			"include_technical": map[string]any{
				"type":        "boolean",
				"default":     DefaultIncludeTechnical,
				"description": "Include technical camera settings in output",
			},
			"include_location": map[string]any{
				"type":        "boolean",
				"default":     DefaultIncludeLocation,
				"description": "Include GPS location data in output",
			},
		},
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func sessionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := json.Marshal(SessionSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		const id = "inmemory://session-config"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(id, bytes.NewReader(data)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(id)
	})
	return compiledSchema, schemaErr
}

// validateDocument checks a decoded JSON document against the session schema.
func validateDocument(doc any) error {
	schema, err := sessionSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}

// ValidateSession checks s against the session schema.
func ValidateSession(s Session) error {
	doc, err := toDocument(s)
	if err != nil {
		return err
	}
	return validateDocument(doc)
}

func toDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: config must be a JSON object", ErrInvalidSession)
	}
	return doc, nil
}

// FromQuery builds a session from HTTP query parameters layered over
// defaults.
//
// Two forms are accepted and may be combined:
//   - config: a Base64-encoded JSON object holding any session keys
//   - timeout, max_file_size, include_technical, include_location as plain
//     parameters, which override keys from config
//
// The merged document is validated against SessionSchema.
func FromQuery(q url.Values, defaults Session) (Session, error) {
	doc, err := toDocument(defaults)
	if err != nil {
		return Session{}, err
	}

	if raw := q.Get("config"); raw != "" {
		data, err := decodeBase64(raw)
		if err != nil {
			return Session{}, fmt.Errorf("%w: config parameter is not base64: %v", ErrInvalidSession, err)
		}
		overlay, err := decodeDocument(data)
		if err != nil {
			return Session{}, err
		}
		for k, v := range overlay {
			doc[k] = v
		}
	}

	for _, key := range []string{"timeout", "max_file_size"} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Session{}, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidSession, key, raw)
			}
			doc[key] = json.Number(strconv.FormatInt(n, 10))
		}
	}
	for _, key := range []string{"include_technical", "include_location"} {
		if raw := q.Get(key); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return Session{}, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidSession, key, raw)
			}
			doc[key] = b
		}
	}

	if err := validateDocument(doc); err != nil {
		return Session{}, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return s, nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not. A '+'
// that arrived unescaped in a query string has become a space.
func decodeBase64(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
