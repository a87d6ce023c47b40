package diagnostics

import (
	"fmt"
	"math/big"
)

// Binary size thresholds used by FormatBestUnit.
const (
	Mebi int64 = 1024 * 1024
	Gibi int64 = Mebi * 1024
)

const nanosPerMilli = 1_000_000

// FormatBestUnit renders a byte count in the largest binary unit it reaches:
// plain bytes below 1 MiB, otherwise MiB or GiB with two decimals.
func FormatBestUnit(size int64) string {
	switch {
	case size < Mebi:
		return fmt.Sprintf("%d bytes", size)
	case size < Gibi:
		return exactQuotient(size, Mebi) + " MiB"
	default:
		return exactQuotient(size, Gibi) + " GiB"
	}
}

// FormatMillisecond renders a nanosecond count as milliseconds with two decimals.
func FormatMillisecond(nanosecond int64) string {
	return exactQuotient(nanosecond, nanosPerMilli) + " ms"
}

// exactQuotient divides without going through float64. FloatString rounds
// the last digit half away from zero.
func exactQuotient(n, d int64) string {
	return big.NewRat(n, d).FloatString(2)
}
