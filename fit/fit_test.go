package fit

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-thermal/internal/testutil"
)

func TestFosterRoundTripTwoTerm(t *testing.T) {
	wantR := []float64{1.0, 0.5}
	wantTau := []float64{1e-4, 1e-2}

	times := testutil.GeomSpace(1e-6, 1, 160)
	z := testutil.FosterCurve(times, wantR, wantTau)

	res, err := Foster(times, z, 2, WithRefineIterations(6))
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireRelativeNearlyEqual(t, res.Network.R, wantR, 1e-3)
	testutil.RequireRelativeNearlyEqual(t, res.Tau, wantTau, 1e-3)

	wantC := []float64{wantTau[0] / wantR[0], wantTau[1] / wantR[1]}
	testutil.RequireRelativeNearlyEqual(t, res.Network.C, wantC, 5e-3)

	if res.RMSErrorPct > 1e-3 {
		t.Fatalf("RMS error = %v%%, want < 1e-3%%", res.RMSErrorPct)
	}
}

func TestFosterFourDecadeScenario(t *testing.T) {
	// Four equal 0.5 K/W branches, one per decade of tau. The sample grid
	// covers the listed decade instants and runs two further decades so the
	// largest-time sample sits at steady state.
	wantR := []float64{0.5, 0.5, 0.5, 0.5}
	wantTau := []float64{1e-6, 1e-5, 1e-4, 1e-3}

	times := testutil.GeomSpace(1e-6, 1e-1, 101)
	z := testutil.FosterCurve(times, wantR, wantTau)

	res, err := Foster(times, z, 4, WithRefineIterations(6))
	if err != nil {
		t.Fatal(err)
	}

	if res.DCErrorPct > 0.1 {
		t.Fatalf("DC error = %v%%, want < 0.1%%", res.DCErrorPct)
	}

	rth := res.Network.Rth()
	if math.Abs(rth-2.0) > 2e-3 {
		t.Fatalf("Rth = %v, want 2.0", rth)
	}

	testutil.RequireRelativeNearlyEqual(t, res.Network.R, wantR, 2e-2)
	testutil.RequireRelativeNearlyEqual(t, res.Tau, wantTau, 2e-2)
}

func TestFosterCanonicalOrder(t *testing.T) {
	times := testutil.GeomSpace(1e-5, 10, 120)
	z := testutil.FosterCurve(times, []float64{0.3, 0.7}, []float64{2e-3, 0.2})

	res, err := Foster(times, z, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(res.Tau); i++ {
		if res.Tau[i] < res.Tau[i-1] {
			t.Fatalf("tau not ascending: %v", res.Tau)
		}
	}
}

func TestFosterSingleTermTwoPoints(t *testing.T) {
	// Order 1 on two well-separated points degenerates to a single
	// exponential.
	times := []float64{0.1, 10}
	z := testutil.FosterCurve(times, []float64{1.5}, []float64{0.5})

	res, err := Foster(times, z, 1, WithRefineIterations(4))
	if err != nil {
		t.Fatal(err)
	}

	if res.Network.Order() != 1 {
		t.Fatalf("order = %d, want 1", res.Network.Order())
	}

	testutil.RequireFinite(t, res.Network.R)
	testutil.RequireFinite(t, res.Network.C)
	testutil.RequireSliceNearlyEqual(t, res.Fitted, z, 1e-6)
}

func TestFosterFiltersInvalidSamples(t *testing.T) {
	times := testutil.GeomSpace(1e-4, 1, 50)
	z := testutil.FosterCurve(times, []float64{1}, []float64{1e-2})

	// Poison the input with entries the fit must drop.
	dirtyT := append([]float64{-1, 0, math.NaN()}, times...)
	dirtyZ := append([]float64{5, 5, 5}, z...)
	dirtyT = append(dirtyT, 2)
	dirtyZ = append(dirtyZ, math.Inf(1))

	res, err := Foster(dirtyT, dirtyZ, 1, WithRefineIterations(3))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Time) != len(times) {
		t.Fatalf("kept %d samples, want %d", len(res.Time), len(times))
	}

	if res.RMSErrorPct > 0.01 {
		t.Fatalf("RMS error = %v%%, want tiny after filtering", res.RMSErrorPct)
	}
}

func TestFosterSortsUnorderedSamples(t *testing.T) {
	times := []float64{1, 1e-3, 0.1, 1e-2, 10}
	z := testutil.FosterCurve(times, []float64{2}, []float64{0.05})

	res, err := Foster(times, z, 1, WithRefineIterations(3))
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(res.Time); i++ {
		if res.Time[i] <= res.Time[i-1] {
			t.Fatalf("times not sorted: %v", res.Time)
		}
	}
}

func TestFosterAmplitudeFloor(t *testing.T) {
	// Decreasing samples cannot be represented by positive exponential
	// terms; the linear solve would go negative and must be floored.
	times := []float64{1, 2, 3, 4, 5, 6}
	z := []float64{1, 0.5, 0.25, 0.12, 0.06, 0.03}

	res, err := Foster(times, z, 2, WithRefineIterations(1))
	if err != nil {
		t.Fatal(err)
	}

	for i, r := range res.Network.R {
		if r < amplitudeFloor {
			t.Fatalf("R[%d] = %v below floor", i, r)
		}
	}

	testutil.RequireFinite(t, res.Network.R)
	testutil.RequireFinite(t, res.Network.C)
	testutil.RequireFinite(t, res.Fitted)
}

func TestFosterInputErrors(t *testing.T) {
	times := []float64{1, 2, 3}
	z := []float64{0.1, 0.2, 0.3}

	if _, err := Foster(times, z[:2], 1); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}

	if _, err := Foster(times, z, 0); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("err = %v, want ErrInvalidOrder", err)
	}

	if _, err := Foster(times, z, 4); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("err = %v, want ErrTooFewPoints", err)
	}

	// Valid count drops below the order after filtering.
	if _, err := Foster([]float64{-1, -2, 3}, z, 2); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("err = %v, want ErrTooFewPoints after filtering", err)
	}
}

func TestFosterZeroRefineIterations(t *testing.T) {
	times := testutil.GeomSpace(1e-4, 1, 80)
	z := testutil.FosterCurve(times, []float64{1}, []float64{1e-2})

	res, err := Foster(times, z, 2, WithRefineIterations(0))
	if err != nil {
		t.Fatal(err)
	}

	// No refinement keeps the geometric initialization, so the fit is
	// rough but must still be finite, ordered and diagnosable.
	testutil.RequireFinite(t, res.Fitted)
	testutil.RequireFinite(t, []float64{res.RMSErrorPct, res.DCErrorPct})
}

func TestGeomSpace(t *testing.T) {
	g := geomSpace(0.01, 100, 5)
	want := []float64{0.01, 0.1, 1, 10, 100}

	testutil.RequireRelativeNearlyEqual(t, g, want, 1e-12)
}
