package timeline

import "testing"

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd float64
		want                       bool
		amount                     float64
	}{
		{"disjoint", 0, 5, 6, 8, false, 0},
		{"touching", 0, 5, 5, 8, false, 0},
		{"partial", 0, 5, 3, 7, true, 2},
		{"contained", 0, 10, 2, 4, true, 2},
		{"float noise", 0, 0.1 + 0.2, 0.3, 1, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := OverlapAmount(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); tt.want && !approxEqual(got, tt.amount) {
				t.Errorf("OverlapAmount() = %v, want %v", got, tt.amount)
			}
		})
	}
}

func TestContains(t *testing.T) {
	if !Contains(2, 5, 2) {
		t.Error("Contains(2, 5, 2) = false, start is inclusive")
	}
	if Contains(2, 5, 5) {
		t.Error("Contains(2, 5, 5) = true, end is exclusive")
	}
	if StrictlyInside(2, 5, 2) || !StrictlyInside(2, 5, 3) {
		t.Error("StrictlyInside() boundary handling is wrong")
	}
}

func TestPixelConversion(t *testing.T) {
	if got := PixelsToSeconds(250, 50); got != 5 {
		t.Errorf("PixelsToSeconds(250, 50) = %v, want 5", got)
	}
	if got := SecondsToPixels(2.5, 40); got != 100 {
		t.Errorf("SecondsToPixels(2.5, 40) = %v, want 100", got)
	}
	if PixelsToSeconds(10, 0) != 0 || SecondsToPixels(10, -1) != 0 {
		t.Error("non-positive zoom should yield 0")
	}
}

func TestSnap(t *testing.T) {
	points := []float64{0, 4, 10}

	tests := []struct {
		name      string
		t         float64
		threshold float64
		want      float64
		snapped   bool
	}{
		{"nearest point", 3.8, 0.5, 4, true},
		{"out of range", 7, 0.5, 7, false},
		{"prefers closer", 9.7, 6, 10, true},
		{"disabled", 3.9, 0, 3.9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Snap(tt.t, points, tt.threshold)
			if got != tt.want || ok != tt.snapped {
				t.Errorf("Snap(%v) = %v, %v; want %v, %v", tt.t, got, ok, tt.want, tt.snapped)
			}
		})
	}
}

func TestSnapPoints_ExcludesClip(t *testing.T) {
	clips := []Clip{
		{ID: "a", Start: 0, Duration: 5},
		{ID: "b", Start: 7, Duration: 2},
	}
	points := SnapPoints(clips, 3, "b")
	want := []float64{0, 3, 0, 5}
	if len(points) != len(want) {
		t.Fatalf("SnapPoints() = %v, want %v", points, want)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("SnapPoints()[%d] = %v, want %v", i, points[i], want[i])
		}
	}
}

func TestSnapStart_UsesEitherEdge(t *testing.T) {
	points := []float64{0, 10}

	// End edge 9.8 snaps to 10.
	if got, ok := snapStart(6.8, 3, points, 0.5); !ok || !approxEqual(got, 7) {
		t.Errorf("snapStart() = %v, %v; want 7, true", got, ok)
	}
	// Start edge 0.2 snaps to 0.
	if got, ok := snapStart(0.2, 3, points, 0.5); !ok || got != 0 {
		t.Errorf("snapStart() = %v, %v; want 0, true", got, ok)
	}
}
