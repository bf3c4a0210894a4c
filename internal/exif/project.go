package exif

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ironsheep/exif-extractor-mcp/internal/imaging"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Result is the response payload of one extraction.
//
// The structural fields are always set. Every pointer field is omitted from
// the JSON form when the image lacks the tag or its group was not requested.
type Result struct {
	Source     SourceKind `json:"source"`
	Format     string     `json:"format"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	ColorSpace string     `json:"color_space"`
	ColorModel string     `json:"color_model"`
	BitDepth   int        `json:"bit_depth"`
	SizeBytes  int        `json:"size_bytes"`
	HasEXIF    bool       `json:"has_exif"`
	Note       string     `json:"note,omitempty"`

	// Camera and capture settings, only with IncludeTechnical.
	Make            *string  `json:"make,omitempty"`
	Model           *string  `json:"model,omitempty"`
	Software        *string  `json:"software,omitempty"`
	LensModel       *string  `json:"lens_model,omitempty"`
	Timestamp       *string  `json:"timestamp,omitempty"`
	ExposureTime    *string  `json:"exposure_time,omitempty"`
	ExposureSeconds *float64 `json:"exposure_seconds,omitempty"`
	FNumber         *float64 `json:"f_number,omitempty"`
	ISO             *int64   `json:"iso,omitempty"`
	FocalLengthMM   *float64 `json:"focal_length_mm,omitempty"`
	Orientation     *int64   `json:"orientation,omitempty"`
	Flash           *string  `json:"flash,omitempty"`
	WhiteBalance    *string  `json:"white_balance,omitempty"`

	// Position, only with IncludeLocation.
	Latitude       *float64 `json:"gps_latitude,omitempty"`
	Longitude      *float64 `json:"gps_longitude,omitempty"`
	AltitudeMeters *float64 `json:"gps_altitude_m,omitempty"`
}

// JSON names of each field group, in output order.
var (
	StructuralFields = []string{"format", "width", "height", "color_space", "color_model", "bit_depth"}
	TechnicalFields  = []string{
		"make", "model", "software", "lens_model", "timestamp",
		"exposure_time", "exposure_seconds", "f_number", "iso",
		"focal_length_mm", "orientation", "flash", "white_balance",
	}
	LocationFields = []string{"gps_latitude", "gps_longitude", "gps_altitude_m"}
)

// Project builds a Result from the structural probe and the decoded tags.
// tags is nil when the image carried no readable metadata segment; an empty
// non-nil Tags means the segment decoded but held none of the known tags.
func Project(info *imaging.ImageInfo, tags Tags, opts Options) *Result {
	r := &Result{
		Format:     string(info.Format),
		Width:      info.Width,
		Height:     info.Height,
		ColorModel: info.ColorModel,
		BitDepth:   info.BitDepth,
		SizeBytes:  info.SizeBytes,
		HasEXIF:    tags != nil,
		ColorSpace: colorSpaceName(tags, info.ColorModel),
	}

	if opts.IncludeTechnical {
		projectTechnical(r, tags)
	}
	if opts.IncludeLocation {
		projectLocation(r, tags)
	}
	return r
}

func projectTechnical(r *Result, tags Tags) {
	if s, ok := tags.String(TagMake); ok {
		r.Make = &s
	}
	if s, ok := tags.String(TagModel); ok {
		r.Model = &s
	}
	if s, ok := tags.String(TagSoftware); ok {
		r.Software = &s
	}
	if s, ok := tags.String(TagLensModel); ok {
		r.LensModel = &s
	}

	ts, ok := tags.String(TagDateTimeOriginal)
	if !ok {
		ts, ok = tags.String(TagDateTime)
	}
	if ok {
		if t, err := time.Parse(exifTimeLayout, ts); err == nil {
			ts = t.Format("2006-01-02T15:04:05")
		}
		r.Timestamp = &ts
	}

	if rat, ok := tags.Rational(TagExposureTime); ok && rat.Num > 0 {
		if secs, ok := rat.Float(); ok {
			display := formatExposure(rat)
			secs = roundTo(secs, 6)
			r.ExposureTime = &display
			r.ExposureSeconds = &secs
		}
	}
	if rat, ok := tags.Rational(TagFNumber); ok {
		if f, ok := rat.Float(); ok && f > 0 {
			f = roundTo(f, 1)
			r.FNumber = &f
		}
	}
	if iso, ok := tags.Int(TagISOSpeedRatings); ok && iso > 0 {
		r.ISO = &iso
	}
	if rat, ok := tags.Rational(TagFocalLength); ok {
		if f, ok := rat.Float(); ok && f > 0 {
			f = roundTo(f, 2)
			r.FocalLengthMM = &f
		}
	}
	if o, ok := tags.Int(TagOrientation); ok && o >= 1 && o <= 8 {
		r.Orientation = &o
	}
	if flash, ok := tags.Int(TagFlash); ok {
		s := "not fired"
		if flash&0x01 != 0 {
			s = "fired"
		}
		r.Flash = &s
	}
	if wb, ok := tags.Int(TagWhiteBalance); ok {
		var s string
		switch wb {
		case 0:
			s = "auto"
		case 1:
			s = "manual"
		}
		if s != "" {
			r.WhiteBalance = &s
		}
	}
}

func projectLocation(r *Result, tags Tags) {
	latRef, _ := tags.String(TagGPSLatitudeRef)
	if dms, ok := tags.Rationals(TagGPSLatitude); ok {
		if lat, err := DMSToDecimal(dms, latRef); err == nil && lat >= -90 && lat <= 90 {
			lat = roundTo(lat, 6)
			r.Latitude = &lat
		}
	}

	lonRef, _ := tags.String(TagGPSLongitudeRef)
	if dms, ok := tags.Rationals(TagGPSLongitude); ok {
		if lon, err := DMSToDecimal(dms, lonRef); err == nil && lon >= -180 && lon <= 180 {
			lon = roundTo(lon, 6)
			r.Longitude = &lon
		}
	}

	if rat, ok := tags.Rational(TagGPSAltitude); ok {
		if alt, ok := rat.Float(); ok {
			// GPSAltitudeRef 1 means below sea level.
			if ref, ok := tags.Int(TagGPSAltitudeRef); ok && ref == 1 {
				alt = -alt
			}
			alt = roundTo(alt, 2)
			r.AltitudeMeters = &alt
		}
	}
}

// colorSpaceName prefers the EXIF ColorSpace tag and falls back to the pixel
// layout reported by the probe.
func colorSpaceName(tags Tags, colorModel string) string {
	if cs, ok := tags.Int(TagColorSpace); ok {
		switch cs {
		case 1:
			return "sRGB"
		case 2:
			return "Adobe RGB"
		case 0xFFFF:
			return "Uncalibrated"
		}
	}
	switch colorModel {
	case "RGB", "RGBA":
		return "RGB"
	case "Grayscale", "GrayscaleAlpha":
		return "Grayscale"
	case "":
		return "Unknown"
	default:
		return colorModel
	}
}

// formatExposure renders an exposure time the way cameras display it:
// "1/125", "2", "2.5".
func formatExposure(r Rational) string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	if r.Num >= r.Den {
		return strconv.FormatFloat(float64(r.Num)/float64(r.Den), 'f', -1, 64)
	}
	g := gcd(r.Num, r.Den)
	num, den := r.Num/g, r.Den/g
	if num == 1 {
		return fmt.Sprintf("1/%d", den)
	}
	// 3/1000 style values that do not reduce to 1/n.
	return fmt.Sprintf("1/%d", int64(float64(den)/float64(num)+0.5))
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
