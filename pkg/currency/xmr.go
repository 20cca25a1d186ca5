package currency

import (
	"fmt"
	"math"
)

// AtomicPerXMR is the number of atomic units (piconero) in one XMR.
const AtomicPerXMR = 1e12

// XMRToAtomic converts an XMR amount to atomic units, rounding to the
// nearest unit.
func XMRToAtomic(xmr float64) uint64 {
	if xmr <= 0 {
		return 0
	}
	return uint64(math.Round(xmr * AtomicPerXMR))
}

// AtomicToXMR converts atomic units back to XMR.
func AtomicToXMR(atomic uint64) float64 {
	return float64(atomic) / AtomicPerXMR
}

// FormatXMR renders an atomic amount as a decimal XMR string, trimmed to 12
// fractional digits.
func FormatXMR(atomic uint64) string {
	return fmt.Sprintf("%.12f", AtomicToXMR(atomic))
}
