// Command zthfit identifies a Foster thermal network from transient thermal
// impedance samples read on standard input.
//
// Usage:
//
//	zthfit [flags] < samples.txt
//
// Each input line carries one "time impedance" pair (seconds and K/W),
// whitespace separated. Blank lines and lines starting with '#' are skipped.
//
// Examples:
//
//	zthfit -order 4 < zth.txt
//	zthfit -order 3 -refine 4 -cauer < zth.txt
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-thermal/cauer"
	"github.com/cwbudde/algo-thermal/fit"
	"github.com/cwbudde/algo-thermal/step"
)

func main() {
	order := flag.Int("order", 4, "number of RC terms to fit")
	refine := flag.Int("refine", 2, "nonlinear refinement rounds")
	toCauer := flag.Bool("cauer", false, "also convert the fit to a Cauer ladder")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: zthfit [flags] < samples.txt\n\n")
		fmt.Fprintf(os.Stderr, "Fits a Foster thermal network to \"time impedance\" pairs on stdin.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	t, z, err := readSamples(os.Stdin)
	if err != nil {
		fatal(err)
	}

	res, err := fit.Foster(t, z, *order, fit.WithRefineIterations(*refine))
	if err != nil {
		fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)

	fmt.Fprintln(w, "Foster network")
	fmt.Fprintln(w, "term\tR [K/W]\tC [J/K]\ttau [s]")
	for i := range res.Network.R {
		fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%.6g\n", i, res.Network.R[i], res.Network.C[i], res.Tau[i])
	}
	fmt.Fprintf(w, "\nRth (DC)\t%.6g K/W\n", res.Network.Rth())
	fmt.Fprintf(w, "RMS error\t%.4g %%\n", res.RMSErrorPct)
	fmt.Fprintf(w, "DC error\t%.4g %%\n", res.DCErrorPct)

	if *toCauer {
		ladder, err := cauer.FromFoster(res.Network)
		if err != nil {
			w.Flush()
			fatal(err)
		}

		fmt.Fprintln(w, "\nCauer ladder")
		fmt.Fprintln(w, "stage\tR [K/W]\tC [J/K]")
		for i := range ladder.R {
			fmt.Fprintf(w, "%d\t%.6g\t%.6g\n", i, ladder.R[i], ladder.C[i])
		}
		fmt.Fprintf(w, "\nladder Rth\t%.6g K/W\n", ladder.Rth())

		zth, err := step.Response(res.Time, ladder)
		var warn *step.ConditioningWarning
		switch {
		case errors.As(err, &warn):
			fmt.Fprintf(os.Stderr, "warning: %v\n", warn)
		case err != nil:
			w.Flush()
			fatal(err)
		}

		maxDev := 0.0
		for i := range zth {
			if d := abs(zth[i] - res.Fitted[i]); d > maxDev {
				maxDev = d
			}
		}
		fmt.Fprintf(w, "max |ladder - fit| over samples\t%.4g K/W\n", maxDev)
	}

	w.Flush()
}

func readSamples(f *os.File) ([]float64, []float64, error) {
	var t, z []float64

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("line %d: want \"time impedance\", got %q", line, text)
		}

		ti, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %v", line, err)
		}

		zi, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %v", line, err)
		}

		t = append(t, ti)
		z = append(z, zi)
	}

	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	if len(t) == 0 {
		return nil, nil, errors.New("no samples on stdin")
	}

	return t, z, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "zthfit:", err)
	os.Exit(1)
}
