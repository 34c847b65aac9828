package calc

import (
	"math"
	"strconv"
	"strings"
)

// Values this close to a whole number are displayed as integers. Catches
// float artifacts like 0.1+0.2 or 2.5*4 = 10.000000000000002.
const intEpsilon = 1e-10

// maxDecimals bounds the displayed precision of non-integer results.
const maxDecimals = 6

// FormatValue renders a numeric result for display. Whole numbers (within
// intEpsilon) lose the decimal point entirely; everything else is rounded
// to at most six decimal places with trailing zeros trimmed. The output
// depends only on the value, so formatting twice gives the same string.
func FormatValue(v float64) string {
	if r := math.Round(v); math.Abs(v-r) < intEpsilon {
		return strconv.FormatFloat(r, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', maxDecimals, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
