// Package exif implements the extract_exif pipeline: it resolves an image
// reference, validates the bytes and projects the embedded metadata into a
// flat, JSON-ready Result.
//
// # Pipeline
//
// Every call walks the same states:
//
//	Received -> Resolved -> Sniffed -> Decoded | Empty -> Projected
//
// ParseInput classifies the raw string as an http(s) URL or a base64 data URI.
// URLs are downloaded by a Fetcher under a FetchPolicy (deadline and byte
// cap); data URIs are decoded in place after a size pre-check. The bytes are
// then identified by their magic numbers (see the imaging package) and handed
// to a Decoder, which reads the TIFF/EXIF structure into a closed set of
// typed Tags. Project maps the tags to Result fields, honouring the
// IncludeTechnical and IncludeLocation flags.
//
// # Errors
//
// Failures are returned as *Error with a Kind:
//   - invalid_input: not a URL or data URI, or an unusable policy
//   - invalid_encoding: malformed data URI, bad base64, unsupported media type
//   - fetch_timeout: the download missed its deadline
//   - fetch_error: network failure or non-2xx status
//   - payload_too_large: the image exceeds the byte cap
//   - unsupported_format: the bytes are not a readable JPEG or PNG
//
// A missing or corrupt metadata segment is not a failure. The Result then
// carries HasEXIF false and NoEXIFNote.
//
// # Thread Safety
//
// Extractor, Fetcher and GoexifDecoder hold no per-request state and may be
// shared by concurrent sessions.
package exif
