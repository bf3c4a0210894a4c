package exif

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"testing"
)

// tiffEntry is one IFD entry for the little-endian TIFF builder. data holds
// the raw value bytes in file order.
type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	tiffByte     = 1
	tiffASCII    = 2
	tiffShort    = 3
	tiffLong     = 4
	tiffRational = 5
)

func asciiEntry(tag uint16, s string) tiffEntry {
	b := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: tiffASCII, count: uint32(len(b)), data: b}
}

func shortEntry(tag uint16, vals ...uint16) tiffEntry {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return tiffEntry{tag: tag, typ: tiffShort, count: uint32(len(vals)), data: b}
}

func longEntry(tag uint16, v uint32) tiffEntry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return tiffEntry{tag: tag, typ: tiffLong, count: 1, data: b}
}

func byteEntry(tag uint16, vals ...byte) tiffEntry {
	return tiffEntry{tag: tag, typ: tiffByte, count: uint32(len(vals)), data: append([]byte(nil), vals...)}
}

// rationalEntry takes numerator/denominator pairs.
func rationalEntry(tag uint16, pairs ...uint32) tiffEntry {
	b := make([]byte, 4*len(pairs))
	for i, v := range pairs {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return tiffEntry{tag: tag, typ: tiffRational, count: uint32(len(pairs) / 2), data: b}
}

func paddedLen(n int) int {
	return n + n%2
}

func ifdSize(entries []tiffEntry) int {
	size := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			size += paddedLen(len(e.data))
		}
	}
	return size
}

func writeIFD(buf *bytes.Buffer, entries []tiffEntry, offset int) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	le := binary.LittleEndian
	dataOffset := offset + 2 + 12*len(entries) + 4
	var data bytes.Buffer

	_ = binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, le, e.tag)
		_ = binary.Write(buf, le, e.typ)
		_ = binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			buf.Write(inline[:])
			continue
		}
		_ = binary.Write(buf, le, uint32(dataOffset+data.Len()))
		data.Write(e.data)
		if len(e.data)%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(buf, le, uint32(0))
	buf.Write(data.Bytes())
}

// buildTIFF lays out IFD0 followed by the optional Exif and GPS sub-IFDs.
func buildTIFF(ifd0, exifIFD, gpsIFD []tiffEntry) []byte {
	ifd0 = append([]tiffEntry(nil), ifd0...)
	exifPtr, gpsPtr := -1, -1
	if len(exifIFD) > 0 {
		exifPtr = len(ifd0)
		ifd0 = append(ifd0, longEntry(0x8769, 0))
	}
	if len(gpsIFD) > 0 {
		gpsPtr = len(ifd0)
		ifd0 = append(ifd0, longEntry(0x8825, 0))
	}

	exifOffset := 8 + ifdSize(ifd0)
	gpsOffset := exifOffset
	if len(exifIFD) > 0 {
		gpsOffset += ifdSize(exifIFD)
	}
	if exifPtr >= 0 {
		ifd0[exifPtr] = longEntry(0x8769, uint32(exifOffset))
	}
	if gpsPtr >= 0 {
		ifd0[gpsPtr] = longEntry(0x8825, uint32(gpsOffset))
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	writeIFD(&buf, ifd0, 8)
	if len(exifIFD) > 0 {
		writeIFD(&buf, exifIFD, exifOffset)
	}
	if len(gpsIFD) > 0 {
		writeIFD(&buf, gpsIFD, gpsOffset)
	}
	return buf.Bytes()
}

// cameraTIFF is a typical camera EXIF block: Canon body, 1/125s at f/2.8,
// ISO 400, 50mm, flash fired, auto white balance, sRGB, and a position in
// San Francisco (37°46'29.76"N 122°25'9"W, 100m).
func cameraTIFF() []byte {
	ifd0 := []tiffEntry{
		asciiEntry(0x010F, "Canon"),
		asciiEntry(0x0110, "Canon EOS 5D"),
		shortEntry(0x0112, 6),
		asciiEntry(0x0131, "Firmware 1.1"),
		asciiEntry(0x0132, "2023:06:15 09:00:00"),
	}
	exifIFD := []tiffEntry{
		rationalEntry(0x829A, 1, 125),
		rationalEntry(0x829D, 28, 10),
		shortEntry(0x8827, 400),
		asciiEntry(0x9003, "2023:06:15 14:30:00"),
		shortEntry(0x9209, 0x19),
		rationalEntry(0x920A, 50, 1),
		shortEntry(0xA001, 1),
		shortEntry(0xA403, 0),
	}
	gpsIFD := []tiffEntry{
		asciiEntry(0x0001, "N"),
		rationalEntry(0x0002, 37, 1, 46, 1, 2976, 100),
		asciiEntry(0x0003, "W"),
		rationalEntry(0x0004, 122, 1, 25, 1, 900, 100),
		byteEntry(0x0005, 0),
		rationalEntry(0x0006, 100, 1),
	}
	return buildTIFF(ifd0, exifIFD, gpsIFD)
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 100, 50, 255})
		}
	}
	return img
}

// makeJPEG encodes a w×h JPEG; a non-nil tiff payload is inserted as an
// APP1 Exif segment right after SOI.
func makeJPEG(t *testing.T, w, h int, tiff []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(w, h), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	plain := buf.Bytes()
	if tiff == nil {
		return plain
	}

	payload := append([]byte("Exif\x00\x00"), tiff...)
	var out bytes.Buffer
	out.Write(plain[:2])
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(plain[2:])
	return out.Bytes()
}

// makePNG encodes img; a non-nil exif payload is inserted as an eXIf chunk
// right after IHDR.
func makePNG(t *testing.T, img image.Image, exifPayload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	plain := buf.Bytes()
	if exifPayload == nil {
		return plain
	}

	const afterIHDR = 8 + 4 + 4 + 13 + 4
	var chunk bytes.Buffer
	_ = binary.Write(&chunk, binary.BigEndian, uint32(len(exifPayload)))
	typed := append([]byte("eXIf"), exifPayload...)
	chunk.Write(typed)
	_ = binary.Write(&chunk, binary.BigEndian, crc32.ChecksumIEEE(typed))

	var out bytes.Buffer
	out.Write(plain[:afterIHDR])
	out.Write(chunk.Bytes())
	out.Write(plain[afterIHDR:])
	return out.Bytes()
}

func dataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
