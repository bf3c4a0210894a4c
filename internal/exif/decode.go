package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ironsheep/exif-extractor-mcp/internal/imaging"
)

// maxTagValues caps how many values are copied out of one tag.
const maxTagValues = 16

// Decoder extracts metadata tags from a validated image.
//
// Implementations return an *Error of KindDecode when the image has no
// metadata segment or the segment cannot be parsed. A segment that parses
// but holds none of the known tags yields an empty, non-nil Tags.
type Decoder interface {
	Decode(format imaging.Format, data []byte) (Tags, error)
}

// GoexifDecoder is the Decoder backed by github.com/rwcarlsen/goexif.
type GoexifDecoder struct{}

// Decode locates the EXIF payload (JPEG APP1 segment or PNG eXIf chunk), parses
// it and converts every supported tag into a typed Value.
func (GoexifDecoder) Decode(format imaging.Format, data []byte) (tags Tags, err error) {
	const op = "decode metadata"

	payload := data
	if format == imaging.FormatPNG {
		chunk, ok := pngExifChunk(data)
		if !ok {
			return nil, newError(KindDecode, op, "PNG has no eXIf chunk")
		}
		payload = bytes.TrimPrefix(chunk, []byte("Exif\x00\x00"))
	}

	// goexif indexes into the TIFF structure with offsets taken from the
	// input; a hostile file can make it panic.
	defer func() {
		if r := recover(); r != nil {
			tags = nil
			err = newError(KindDecode, op, fmt.Sprintf("malformed metadata segment: %v", r))
		}
	}()

	x, err := goexif.Decode(bytes.NewReader(payload))
	if err != nil && (x == nil || goexif.IsCriticalError(err)) {
		return nil, wrapError(KindDecode, op, "no readable EXIF segment", err)
	}

	tags = make(Tags)
	for _, t := range AllTags {
		raw, getErr := x.Get(goexif.FieldName(t))
		if getErr != nil || raw == nil {
			continue
		}
		if v, ok := convertTag(raw); ok {
			tags[t] = v
		}
	}
	return tags, nil
}

func convertTag(t *tiff.Tag) (Value, bool) {
	count := int(t.Count)
	if count > maxTagValues {
		count = maxTagValues
	}

	switch t.Format() {
	case tiff.StringVal:
		s, err := t.StringVal()
		if err != nil {
			return Value{}, false
		}
		s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
		return StringValue(s), s != ""

	case tiff.IntVal:
		ints := make([]int64, 0, count)
		for i := 0; i < count; i++ {
			v, err := t.Int64(i)
			if err != nil {
				break
			}
			ints = append(ints, v)
		}
		return IntValue(ints...), len(ints) > 0

	case tiff.RatVal:
		rats := make([]Rational, 0, count)
		for i := 0; i < count; i++ {
			num, den, err := t.Rat2(i)
			if err != nil {
				break
			}
			rats = append(rats, Rational{Num: num, Den: den})
		}
		return RationalValue(rats...), len(rats) > 0
	}
	return Value{}, false
}

// pngExifChunk walks the PNG chunk list and returns the eXIf chunk data.
func pngExifChunk(data []byte) ([]byte, bool) {
	pos := uint64(8)
	size := uint64(len(data))
	for pos+8 <= size {
		length := uint64(binary.BigEndian.Uint32(data[pos:]))
		kind := string(data[pos+4 : pos+8])
		start := pos + 8
		end := start + length
		if end+4 > size {
			return nil, false
		}
		switch kind {
		case "eXIf":
			return data[start:end], true
		case "IEND":
			return nil, false
		}
		pos = end + 4
	}
	return nil, false
}
