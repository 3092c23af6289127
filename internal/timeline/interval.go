package timeline

import "math"

// Epsilon absorbs float error when comparing positions in seconds.
const Epsilon = 1e-6

// OverlapAmount returns how many seconds [aStart, aEnd) and [bStart, bEnd) share.
func OverlapAmount(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := math.Max(aStart, bStart)
	hi := math.Min(aEnd, bEnd)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Overlaps reports whether two half-open intervals share more than Epsilon.
func Overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	return OverlapAmount(aStart, aEnd, bStart, bEnd) > Epsilon
}

// Contains reports whether t lies in the half-open interval [start, end).
func Contains(start, end, t float64) bool {
	return t >= start-Epsilon && t < end-Epsilon
}

// StrictlyInside reports whether t lies in the open interval (start, end).
func StrictlyInside(start, end, t float64) bool {
	return t > start+Epsilon && t < end-Epsilon
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// PixelsToSeconds converts a horizontal offset at the given zoom (pixels per second).
func PixelsToSeconds(px, pps float64) float64 {
	if pps <= 0 {
		return 0
	}
	return px / pps
}

func SecondsToPixels(sec, pps float64) float64 {
	if pps <= 0 {
		return 0
	}
	return sec * pps
}
