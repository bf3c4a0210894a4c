package exif

import (
	"fmt"
	"math"
	"strings"
)

// DMSToDecimal converts a degrees/minutes/seconds rational triple into signed
// decimal degrees. ref is the hemisphere reference ("N", "S", "E", "W");
// "S" and "W" make the result negative.
//
// Fewer than three values are accepted (missing minutes or seconds count as
// zero), as some writers store only degrees and decimal minutes.
func DMSToDecimal(dms []Rational, ref string) (float64, error) {
	if len(dms) == 0 {
		return 0, fmt.Errorf("empty coordinate")
	}

	var parts [3]float64
	for i := 0; i < len(dms) && i < 3; i++ {
		v, ok := dms[i].Float()
		if !ok {
			return 0, fmt.Errorf("coordinate component %d has a zero denominator", i)
		}
		if v < 0 {
			return 0, fmt.Errorf("coordinate component %d is negative", i)
		}
		parts[i] = v
	}

	deg := parts[0] + parts[1]/60 + parts[2]/3600

	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		deg = -deg
	}
	return deg, nil
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
