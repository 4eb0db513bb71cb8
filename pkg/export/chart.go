package export

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/drtmdp/core/simulator"
)

// Histogram bins the trial revenues into n equal-width bins spanning the
// observed range. It returns the n+1 bin edges and the n counts.
func Histogram(trials []simulator.Trial, n int) (edges, counts []float64) {
	if len(trials) == 0 || n < 1 {
		return nil, nil
	}
	rev := make([]float64, len(trials))
	for i, tr := range trials {
		rev[i] = tr.Revenue
	}
	sort.Float64s(rev)
	lo, hi := rev[0], rev[len(rev)-1]
	if lo == hi {
		edges = []float64{lo, lo + 1}
	} else {
		edges = floats.Span(make([]float64, n+1), lo, hi)
		// the last edge is exclusive
		edges[n] = math.Nextafter(hi, math.Inf(1))
	}
	counts = stat.Histogram(nil, edges, rev, nil)
	return edges, counts
}

// WriteRevenueChart renders the revenue histogram as a standalone HTML page.
func WriteRevenueChart(w io.Writer, trials []simulator.Trial, bins int) error {
	edges, counts := Histogram(trials, bins)
	if counts == nil {
		return fmt.Errorf("no trials to chart")
	}
	labels := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		labels[i] = fmt.Sprintf("%.1f", edges[i])
		data[i] = opts.BarData{Value: c}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Revenue per trial", Subtitle: fmt.Sprintf("%d trials", len(trials))}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Revenue"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Trials"}),
	)
	bar.SetXAxis(labels).AddSeries("trials", data)
	return bar.Render(w)
}
