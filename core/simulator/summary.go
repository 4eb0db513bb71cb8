package simulator

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the revenue distribution of a run.
type Summary struct {
	Trials     int     `json:"trials"`
	Infeasible int     `json:"infeasible"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	StdErr     float64 `json:"std_err"`
	Min        float64 `json:"min"`
	P05        float64 `json:"p05"`
	Median     float64 `json:"median"`
	P95        float64 `json:"p95"`
	Max        float64 `json:"max"`
}

// Summarize computes the revenue statistics over all trials.
func Summarize(trials []Trial) Summary {
	s := Summary{Trials: len(trials)}
	if len(trials) == 0 {
		return s
	}
	rev := make([]float64, len(trials))
	for i, tr := range trials {
		rev[i] = tr.Revenue
		if !tr.Feasible {
			s.Infeasible++
		}
	}
	sort.Float64s(rev)
	s.Mean = stat.Mean(rev, nil)
	if len(rev) > 1 {
		s.StdDev = stat.StdDev(rev, nil)
		s.StdErr = stat.StdErr(s.StdDev, float64(len(rev)))
	}
	s.Min, s.Max = rev[0], rev[len(rev)-1]
	s.P05 = stat.Quantile(0.05, stat.Empirical, rev, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, rev, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, rev, nil)
	return s
}
