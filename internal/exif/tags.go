package exif

// Tag is one of the metadata tags the projector knows how to read. The set is
// closed: the decoder adapter only ever produces these keys.
type Tag string

const (
	TagMake             Tag = "Make"
	TagModel            Tag = "Model"
	TagSoftware         Tag = "Software"
	TagLensModel        Tag = "LensModel"
	TagDateTime         Tag = "DateTime"
	TagDateTimeOriginal Tag = "DateTimeOriginal"
	TagExposureTime     Tag = "ExposureTime"
	TagFNumber          Tag = "FNumber"
	TagISOSpeedRatings  Tag = "ISOSpeedRatings"
	TagFocalLength      Tag = "FocalLength"
	TagOrientation      Tag = "Orientation"
	TagFlash            Tag = "Flash"
	TagWhiteBalance     Tag = "WhiteBalance"
	TagColorSpace       Tag = "ColorSpace"
	TagGPSLatitudeRef   Tag = "GPSLatitudeRef"
	TagGPSLatitude      Tag = "GPSLatitude"
	TagGPSLongitudeRef  Tag = "GPSLongitudeRef"
	TagGPSLongitude     Tag = "GPSLongitude"
	TagGPSAltitudeRef   Tag = "GPSAltitudeRef"
	TagGPSAltitude      Tag = "GPSAltitude"
)

// AllTags lists every supported tag in a stable order.
var AllTags = []Tag{
	TagMake, TagModel, TagSoftware, TagLensModel,
	TagDateTime, TagDateTimeOriginal,
	TagExposureTime, TagFNumber, TagISOSpeedRatings, TagFocalLength,
	TagOrientation, TagFlash, TagWhiteBalance,
	TagColorSpace,
	TagGPSLatitudeRef, TagGPSLatitude,
	TagGPSLongitudeRef, TagGPSLongitude,
	TagGPSAltitudeRef, TagGPSAltitude,
}

// ValueKind says which field of a Value is populated.
type ValueKind int

const (
	KindString ValueKind = iota + 1
	KindInts
	KindRationals
)

// Rational is an unsigned or signed TIFF rational.
type Rational struct {
	Num int64
	Den int64
}

// Float returns r as a float64. ok is false for a zero denominator.
func (r Rational) Float() (float64, bool) {
	if r.Den == 0 {
		return 0, false
	}
	return float64(r.Num) / float64(r.Den), true
}

// Value is a decoded tag value.
type Value struct {
	Kind ValueKind
	Str  string
	Ints []int64
	Rats []Rational
}

// StringValue builds a KindString value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntValue builds a KindInts value.
func IntValue(v ...int64) Value { return Value{Kind: KindInts, Ints: v} }

// RationalValue builds a KindRationals value.
func RationalValue(v ...Rational) Value { return Value{Kind: KindRationals, Rats: v} }

// Tags is the decoder's output: a typed value per tag present in the image.
type Tags map[Tag]Value

// String returns the string value of t.
func (tags Tags) String(t Tag) (string, bool) {
	v, ok := tags[t]
	if !ok || v.Kind != KindString || v.Str == "" {
		return "", false
	}
	return v.Str, true
}

// Int returns the first integer value of t.
func (tags Tags) Int(t Tag) (int64, bool) {
	v, ok := tags[t]
	if !ok || v.Kind != KindInts || len(v.Ints) == 0 {
		return 0, false
	}
	return v.Ints[0], true
}

// Rational returns the first rational value of t.
func (tags Tags) Rational(t Tag) (Rational, bool) {
	v, ok := tags[t]
	if !ok || v.Kind != KindRationals || len(v.Rats) == 0 {
		return Rational{}, false
	}
	return v.Rats[0], true
}

// Rationals returns all rational values of t.
func (tags Tags) Rationals(t Tag) ([]Rational, bool) {
	v, ok := tags[t]
	if !ok || v.Kind != KindRationals || len(v.Rats) == 0 {
		return nil, false
	}
	return v.Rats, true
}
