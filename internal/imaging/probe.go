package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
)

// ImageInfo contains the structural facts about an image that can be read from
// its header without decoding any pixels.
type ImageInfo struct {
	// Format is the container format, as established by Sniff.
	Format Format `json:"format"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// ColorModel names the pixel layout: "RGB", "RGBA", "Grayscale",
	// "GrayscaleAlpha", "Indexed", "YCbCr" or "CMYK".
	ColorModel string `json:"color_model"`

	// BitDepth is the bits per channel (or per palette index): 8 for JPEG,
	// 1 to 16 for PNG.
	BitDepth int `json:"bit_depth"`

	// SizeBytes is the length of the encoded image.
	SizeBytes int `json:"size_bytes"`
}

// Probe sniffs data and reads its header.
//
// Parameters:
//   - data: The complete encoded image.
//
// Returns:
//   - *ImageInfo: Format, dimensions and colour layout.
//   - error: ErrUnsupportedFormat (possibly wrapped) if the magic bytes do not
//     match, or if the header is too damaged for the registered decoder to
//     read the dimensions.
//
// # Colour Model Detection
//
// The colour model is determined by the decoder's color.Model:
//   - color.RGBAModel, color.NRGBAModel -> "RGBA", 8-bit
//   - color.RGBA64Model, color.NRGBA64Model -> "RGBA", 16-bit
//   - color.GrayModel -> "Grayscale", 8-bit
//   - color.Gray16Model -> "Grayscale", 16-bit
//   - color.Palette -> "Indexed"
//   - color.YCbCrModel -> "YCbCr" (baseline colour JPEG)
//   - color.CMYKModel -> "CMYK" (Adobe CMYK JPEG)
//
// The PNG decoder reports RGB images without transparency as RGBA; the
// colour type byte of the IHDR chunk is consulted to tell them apart.
func Probe(data []byte) (*ImageInfo, error) {
	format, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable %s header: %v", ErrUnsupportedFormat, format, err)
	}

	info := &ImageInfo{
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		BitDepth:  8,
		SizeBytes: len(data),
	}

	switch cfg.ColorModel.(type) {
	case color.Palette:
		info.ColorModel = "Indexed"
	default:
		switch cfg.ColorModel {
		case color.RGBAModel, color.NRGBAModel:
			info.ColorModel = "RGBA"
		case color.RGBA64Model, color.NRGBA64Model:
			info.ColorModel = "RGBA"
			info.BitDepth = 16
		case color.GrayModel:
			info.ColorModel = "Grayscale"
		case color.Gray16Model:
			info.ColorModel = "Grayscale"
			info.BitDepth = 16
		case color.YCbCrModel:
			info.ColorModel = "YCbCr"
		case color.CMYKModel:
			info.ColorModel = "CMYK"
		default:
			info.ColorModel = "Unknown"
		}
	}

	if format == FormatPNG {
		refinePNGColorType(data, info)
	}

	return info, nil
}

// PNG colour types from the IHDR chunk.
const (
	pngColorGray      = 0
	pngColorRGB       = 2
	pngColorPalette   = 3
	pngColorGrayAlpha = 4
	pngColorRGBAlpha  = 6
)

// refinePNGColorType corrects the colour model and bit depth using the IHDR
// chunk, which always directly follows the signature: 8 bytes signature,
// 4 bytes length, 4 bytes "IHDR", then width, height, bit depth, colour type.
func refinePNGColorType(data []byte, info *ImageInfo) {
	const (
		ihdrBitDepth  = 8 + 4 + 4 + 4 + 4
		ihdrColorType = ihdrBitDepth + 1
	)
	if len(data) <= ihdrColorType || string(data[12:16]) != "IHDR" {
		return
	}
	if d := int(data[ihdrBitDepth]); d > 0 {
		info.BitDepth = d
	}
	switch data[ihdrColorType] {
	case pngColorRGB:
		info.ColorModel = "RGB"
	case pngColorGrayAlpha:
		info.ColorModel = "GrayscaleAlpha"
	case pngColorRGBAlpha:
		info.ColorModel = "RGBA"
	case pngColorGray, pngColorPalette:
		// Already exact.
	}
}
