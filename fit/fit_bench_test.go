package fit

import (
	"testing"

	"github.com/cwbudde/algo-thermal/internal/testutil"
)

func BenchmarkFoster(b *testing.B) {
	orders := []struct {
		name  string
		order int
		r     []float64
		tau   []float64
	}{
		{"order_2", 2, []float64{1.0, 0.5}, []float64{1e-4, 1e-2}},
		{"order_4", 4, []float64{0.5, 0.5, 0.5, 0.5}, []float64{1e-6, 1e-5, 1e-4, 1e-3}},
	}

	for _, bc := range orders {
		b.Run(bc.name, func(b *testing.B) {
			times := testutil.GeomSpace(1e-7, 1e-1, 120)
			z := testutil.FosterCurve(times, bc.r, bc.tau)

			b.ReportAllocs()
			b.ResetTimer()

			for range b.N {
				_, err := Foster(times, z, bc.order, WithRefineIterations(2))
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
