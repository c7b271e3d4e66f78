package testutil

import (
	"math"
	"testing"
)

func TestFosterCurveSingleBranch(t *testing.T) {
	times := []float64{0, 1, 10}
	got := FosterCurve(times, []float64{2}, []float64{1})

	want := []float64{0, 2 * (1 - math.Exp(-1)), 2 * (1 - math.Exp(-10))}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGeomSpaceEndpoints(t *testing.T) {
	g := GeomSpace(1e-6, 1e2, 9)
	if len(g) != 9 {
		t.Fatalf("len = %d, want 9", len(g))
	}

	if math.Abs(g[0]-1e-6)/1e-6 > 1e-12 || math.Abs(g[8]-1e2)/1e2 > 1e-12 {
		t.Fatalf("endpoints %v, %v", g[0], g[8])
	}

	for i := 1; i < len(g); i++ {
		if g[i] <= g[i-1] {
			t.Fatalf("not increasing at %d", i)
		}
	}
}

func TestGeomSpaceSinglePoint(t *testing.T) {
	g := GeomSpace(3, 7, 1)
	if len(g) != 1 || g[0] != 3 {
		t.Fatalf("got %v, want [3]", g)
	}
}
