package geojson

import "testing"

func TestRingOrientationDetectsCCW(t *testing.T) {
	ccw := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	if RingOrientation(ccw) <= 0 {
		t.Fatal("expected positive orientation for CCW ring")
	}
	cw := [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	if RingOrientation(cw) >= 0 {
		t.Fatal("expected negative orientation for CW ring")
	}
}

func TestNormalizeRingReversesWhenNeeded(t *testing.T) {
	cw := [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	out := NormalizeRing(cw, true)
	if RingOrientation(out) <= 0 {
		t.Fatal("expected NormalizeRing(..., true) to produce a CCW ring")
	}

	ccw := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	same := NormalizeRing(ccw, true)
	if &same[0] != &ccw[0] {
		t.Fatal("expected NormalizeRing to return the same slice when orientation already matches")
	}
}

func TestNewFeatureMarshalsPoint(t *testing.T) {
	f := NewFeature(42, Point(1.5, 2.5), map[string]string{"name": "x"})
	b, err := Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("expected non-empty JSON")
	}
}
