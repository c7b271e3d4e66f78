package cauer_test

import (
	"fmt"

	"github.com/cwbudde/algo-thermal/cauer"
	"github.com/cwbudde/algo-thermal/network"
)

func ExampleFromFoster() {
	foster := network.Foster{
		R: []float64{1.0, 0.5},
		C: []float64{1e-4, 4e-2},
	}

	ladder, err := cauer.FromFoster(foster)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(ladder.Order())
	fmt.Printf("%.9f\n", ladder.Rth()/foster.Rth())
	// Output:
	// 2
	// 1.000000000
}
