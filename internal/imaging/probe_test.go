package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// encodePNG encodes img as PNG and returns the bytes.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// encodeJPEG encodes img as baseline JPEG and returns the bytes.
func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// fill paints every pixel of img with c.
func fill(img interface{ Set(x, y int, c color.Color) }, w, h int, c color.Color) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
}

func TestProbe_PNGColorTypes(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 4, 3))
	fill(opaque, 4, 3, color.RGBA{255, 0, 0, 255})

	translucent := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	fill(translucent, 4, 3, color.NRGBA{255, 0, 0, 128})

	gray := image.NewGray(image.Rect(0, 0, 4, 3))
	fill(gray, 4, 3, color.Gray{Y: 128})

	gray16 := image.NewGray16(image.Rect(0, 0, 4, 3))
	fill(gray16, 4, 3, color.Gray16{Y: 40000})

	deep := image.NewRGBA64(image.Rect(0, 0, 4, 3))
	fill(deep, 4, 3, color.RGBA64{R: 65535, A: 65535})

	palette := image.NewPaletted(image.Rect(0, 0, 4, 3), color.Palette{
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 255, 255, 255},
	})

	tests := []struct {
		name      string
		img       image.Image
		wantModel string
		wantDepth int
	}{
		{"opaque RGB", opaque, "RGB", 8},
		{"RGBA with alpha", translucent, "RGBA", 8},
		{"8-bit grayscale", gray, "Grayscale", 8},
		{"16-bit grayscale", gray16, "Grayscale", 16},
		{"16-bit RGB", deep, "RGB", 16},
		{"two colour palette", palette, "Indexed", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodePNG(t, tt.img)

			info, err := Probe(data)
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if info.Format != FormatPNG {
				t.Errorf("Format = %q, want PNG", info.Format)
			}
			if info.Width != 4 || info.Height != 3 {
				t.Errorf("dimensions = %dx%d, want 4x3", info.Width, info.Height)
			}
			if info.ColorModel != tt.wantModel {
				t.Errorf("ColorModel = %q, want %q", info.ColorModel, tt.wantModel)
			}
			if info.BitDepth != tt.wantDepth {
				t.Errorf("BitDepth = %d, want %d", info.BitDepth, tt.wantDepth)
			}
			if info.SizeBytes != len(data) {
				t.Errorf("SizeBytes = %d, want %d", info.SizeBytes, len(data))
			}
		})
	}
}

func TestProbe_JPEG(t *testing.T) {
	rgb := image.NewRGBA(image.Rect(0, 0, 17, 9))
	fill(rgb, 17, 9, color.RGBA{10, 200, 30, 255})

	gray := image.NewGray(image.Rect(0, 0, 17, 9))
	fill(gray, 17, 9, color.Gray{Y: 90})

	tests := []struct {
		name      string
		img       image.Image
		wantModel string
	}{
		{"colour", rgb, "YCbCr"},
		{"grayscale", gray, "Grayscale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Probe(encodeJPEG(t, tt.img))
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if info.Format != FormatJPEG {
				t.Errorf("Format = %q, want JPEG", info.Format)
			}
			if info.Width != 17 || info.Height != 9 {
				t.Errorf("dimensions = %dx%d, want 17x9", info.Width, info.Height)
			}
			if info.ColorModel != tt.wantModel {
				t.Errorf("ColorModel = %q, want %q", info.ColorModel, tt.wantModel)
			}
			if info.BitDepth != 8 {
				t.Errorf("BitDepth = %d, want 8", info.BitDepth)
			}
		})
	}
}

func TestProbe_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")},
		{"text", []byte("hello world")},
		{"png signature only", pngSignature},
		{"jpeg soi only", []byte{0xFF, 0xD8}},
		{"jpeg soi then garbage", []byte{0xFF, 0xD8, 0x00, 0x01, 0x02, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Probe(tt.data)
			if err == nil {
				t.Fatalf("expected error, got %+v", info)
			}
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("error %v does not wrap ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestRefinePNGColorType_ShortData(t *testing.T) {
	info := &ImageInfo{ColorModel: "RGBA", BitDepth: 16}
	refinePNGColorType(pngSignature, info)
	if info.ColorModel != "RGBA" || info.BitDepth != 16 {
		t.Errorf("short data must leave info untouched, got %+v", info)
	}
}
