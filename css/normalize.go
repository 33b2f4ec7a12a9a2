package css

import (
	"strconv"
	"strings"
	"unicode"
)

// Normalize converts a measurement expressed either as a percentage string or
// a pixel string into a concrete pixel value. A percentage is resolved
// against the multiplier (the dimension it is relative to); anything else is
// taken as pixels. Results truncate toward zero.
//
// NOTE: any string containing a percent sign is treated as a true percentage.
// Computed-style semantics of the measurement source are outside our control,
// so the heuristic is preserved as given instead of second-guessing it.
func Normalize(measurement string, multiplier float64) (int, error) {
	s := strings.TrimSpace(measurement)
	num, ok := leadingNumber(s)
	if !ok {
		return 0, &MeasurementError{Raw: measurement}
	}
	if strings.ContainsRune(s, '%') {
		return int(num / 100 * multiplier), nil
	}
	return int(num), nil
}

// leadingNumber parses the numeric prefix of a measurement string the way
// browsers resolve dimension tokens - sign, digits and a decimal dot,
// stopping at the first unit character.
func leadingNumber(s string) (float64, bool) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || ((r == '-' || r == '+') && i == 0) {
			numEnd = i + 1
			continue
		}
		break
	}
	if numEnd == 0 {
		return 0, false
	}
	num, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
