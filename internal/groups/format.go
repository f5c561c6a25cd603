// ABOUTME: Byte and percentage formatting for storage displays
// ABOUTME: Units step by 1024 up to TB

package groups

import (
	"math"
	"strconv"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n in 1024-based units rounded to precision decimals,
// dropping trailing zeros: 1536 -> "1.5 KB", 0 -> "0 B".
func FormatBytes(n int64, precision int) string {
	if n <= 0 {
		return "0 B"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(round(v, precision), 'f', -1, 64) + " " + byteUnits[i]
}

// UsagePercent is used/total as a percentage with two decimals, capped at 100.
func UsagePercent(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(round(float64(used)/float64(total)*100, 2), 100)
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
