package exif

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const dataURIPrefix = "data:"

// SourceKind names the variant of an ImageInput.
type SourceKind string

const (
	SourceURL     SourceKind = "url"
	SourceDataURI SourceKind = "data_uri"
)

// supportedMediaTypes are the media types accepted in a data URI.
var supportedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ImageInput is a classified image_input argument. Exactly one of URL or
// Data is meaningful, selected by Kind.
type ImageInput struct {
	Kind SourceKind

	// URL is set for SourceURL inputs.
	URL *url.URL

	// MediaType and Data are set for SourceDataURI inputs. Data holds the
	// decoded payload.
	MediaType string
	Data      []byte
}

// FetchPolicy bounds how an input is materialized.
type FetchPolicy struct {
	// Timeout bounds the whole network fetch, including reading the body.
	Timeout time.Duration

	// MaxBytes is a hard ceiling on the resolved image size for both URL
	// and inline inputs.
	MaxBytes int64
}

// Validate reports whether the policy is usable.
func (p FetchPolicy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", p.Timeout)
	}
	if p.MaxBytes <= 0 {
		return fmt.Errorf("max bytes must be positive, got %d", p.MaxBytes)
	}
	return nil
}

// Options selects which optional field groups are projected.
type Options struct {
	IncludeTechnical bool
	IncludeLocation  bool
}

// ParseInput classifies raw and, for data URIs, decodes the payload.
//
// Inputs starting with "data:" must have the form
// data:<image/jpeg|image/png>;base64,<payload>; anything else is treated as a
// URL and must be an absolute http or https URL. maxBytes is checked against
// the decoded payload of a data URI; URL inputs are size-checked by Fetch.
func ParseInput(raw string, maxBytes int64) (*ImageInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, newError(KindInvalidInput, "parse input", "image_input is empty")
	}

	if len(raw) >= len(dataURIPrefix) && strings.EqualFold(raw[:len(dataURIPrefix)], dataURIPrefix) {
		return parseDataURI(raw[len(dataURIPrefix):], maxBytes)
	}
	return parseURL(raw)
}

func parseURL(raw string) (*ImageInput, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, wrapError(KindInvalidInput, "parse input", "image_input is neither a data URI nor a valid URL", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, newError(KindInvalidInput, "parse input",
			fmt.Sprintf("image_input must be an http(s) URL or a data URI, got %q", truncate(raw, 64)))
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, newError(KindInvalidInput, "parse input", "image URL has no host")
	}
	return &ImageInput{Kind: SourceURL, URL: u}, nil
}

func parseDataURI(rest string, maxBytes int64) (*ImageInput, error) {
	const op = "decode data URI"

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, newError(KindInvalidEncoding, op, "data URI has no ',' separator")
	}

	mediaType, params, _ := strings.Cut(header, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if !strings.EqualFold(strings.TrimSpace(params), "base64") {
		return nil, newError(KindInvalidEncoding, op, "data URI must use ;base64 encoding")
	}
	if !supportedMediaTypes[mediaType] {
		return nil, newError(KindInvalidEncoding, op,
			fmt.Sprintf("unsupported media type %q (want image/jpeg or image/png)", mediaType))
	}

	// Reject before allocating when the encoded length alone proves the
	// payload is too big. DecodedLen over-counts by at most 2 bytes of padding.
	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload)))-2 > maxBytes {
		return nil, newError(KindPayloadTooLarge, op,
			fmt.Sprintf("inline image exceeds the %s limit", FormatBytes(maxBytes)))
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, wrapError(KindInvalidEncoding, op, "payload is not valid base64", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, newError(KindPayloadTooLarge, op,
			fmt.Sprintf("inline image is %d bytes, limit is %s", len(data), FormatBytes(maxBytes)))
	}

	return &ImageInput{Kind: SourceDataURI, MediaType: mediaType, Data: data}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// FormatBytes renders a byte limit for messages: "50MB" for whole mebibytes,
// otherwise "N bytes".
func FormatBytes(n int64) string {
	const mib = 1024 * 1024
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
