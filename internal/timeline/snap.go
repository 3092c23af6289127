package timeline

import "math"

// SnapOptions controls edge snapping during Move. A zero value disables snapping.
type SnapOptions struct {
	Enabled         bool
	Playhead        float64
	ThresholdPx     float64
	PixelsPerSecond float64
}

func (o SnapOptions) thresholdSeconds() float64 {
	return PixelsToSeconds(o.ThresholdPx, o.PixelsPerSecond)
}

// Snap returns the point nearest to t if it lies within threshold seconds.
func Snap(t float64, points []float64, threshold float64) (float64, bool) {
	if threshold <= 0 {
		return t, false
	}
	best, bestDist := t, math.Inf(1)
	for _, p := range points {
		d := math.Abs(p - t)
		if d <= threshold && d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// SnapPoints collects zero, the playhead and the edges of every clip except excludeID.
func SnapPoints(clips []Clip, playhead float64, excludeID string) []float64 {
	points := make([]float64, 0, 2+2*len(clips))
	points = append(points, 0, playhead)
	for _, c := range clips {
		if c.ID == excludeID {
			continue
		}
		points = append(points, c.Start, c.End())
	}
	return points
}

// snapStart aligns either edge of a clip of the given duration placed at start.
func snapStart(start, duration float64, points []float64, threshold float64) (float64, bool) {
	s, okStart := Snap(start, points, threshold)
	e, okEnd := Snap(start+duration, points, threshold)
	switch {
	case okStart && okEnd:
		if math.Abs(s-start) <= math.Abs(e-(start+duration)) {
			return s, true
		}
		return e - duration, true
	case okStart:
		return s, true
	case okEnd:
		return e - duration, true
	default:
		return start, false
	}
}
