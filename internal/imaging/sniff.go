package imaging

import (
	"bytes"
	"errors"
)

// Format is an image container format recognised by its leading bytes.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "JPEG"
	FormatPNG     Format = "PNG"
)

// ErrUnsupportedFormat is returned by Sniff when data starts with neither the
// JPEG nor the PNG signature.
var ErrUnsupportedFormat = errors.New("not a JPEG or PNG image")

var (
	jpegSignature = []byte{0xFF, 0xD8}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// Sniff identifies data by its magic bytes alone. Whatever media type a client
// declared is irrelevant here.
func Sniff(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return FormatPNG, nil
	case bytes.HasPrefix(data, jpegSignature):
		return FormatJPEG, nil
	default:
		return FormatUnknown, ErrUnsupportedFormat
	}
}

// MediaType returns the IANA media type of f, or "" for FormatUnknown.
func (f Format) MediaType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	default:
		return ""
	}
}
