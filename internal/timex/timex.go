// Package timex converts between the float-seconds timestamps exchanged with
// callers and the fixed-precision integers kept in storage.
//
// Stored values are hundredths of a second. Conversions round half away from
// zero, so Decode(Encode(x)) == Round(x) for every finite x.
package timex

import (
	"math"
	"time"
)

// Precision is the number of stored steps per second.
const Precision = 100

// Encode converts float seconds to the stored integer representation.
func Encode(seconds float64) int64 {
	return int64(math.Round(seconds * Precision))
}

// Decode converts a stored integer back to float seconds.
func Decode(v int64) float64 {
	return float64(v) / Precision
}

// Round rounds seconds to the stored precision without changing representation.
func Round(seconds float64) float64 {
	return Decode(Encode(seconds))
}

// FromTime returns t as float seconds since the Unix epoch.
func FromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Now returns the current time in float seconds, rounded to the stored precision.
func Now() float64 {
	return Round(FromTime(time.Now()))
}
