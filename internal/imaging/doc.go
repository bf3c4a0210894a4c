// Package imaging identifies encoded images and reads their structural facts
// without decoding pixels.
//
// # Format Detection
//
// Sniff looks only at the leading magic bytes:
//   - JPEG: FF D8
//   - PNG: 89 50 4E 47 0D 0A 1A 0A
//
// Anything else is ErrUnsupportedFormat. A declared media type (from a data
// URI or an HTTP Content-Type header) is never consulted here.
//
// # Header Probe
//
// Probe runs Sniff and then image.DecodeConfig, which parses only the header
// (SOFn for JPEG, IHDR and PLTE for PNG). The result carries the dimensions,
// the colour model, the bit depth and the encoded size. A file whose magic
// bytes match but whose header cannot be parsed is also reported as
// ErrUnsupportedFormat.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package imaging
