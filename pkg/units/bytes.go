package units

import (
	"fmt"
	"math"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a size with binary (1024) prefixes and one decimal,
// e.g. 1536 -> "1.5 KB". Zero and negative sizes render as "0 B".
func FormatBytes(size int64) string {
	if size <= 0 {
		return "0 B"
	}

	exp := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	// correct floating point error at exact powers of 1024
	if exp > 0 && float64(size) < math.Pow(1024, float64(exp)) {
		exp--
	} else if float64(size) >= math.Pow(1024, float64(exp+1)) {
		exp++
	}
	if exp < 0 {
		exp = 0
	}
	if exp > len(byteUnits)-1 {
		exp = len(byteUnits) - 1
	}

	if exp == 0 {
		return fmt.Sprintf("%d B", size)
	}

	value := float64(size) / math.Pow(1024, float64(exp))
	return fmt.Sprintf("%.1f %s", value, byteUnits[exp])
}
