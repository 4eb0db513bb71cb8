// Package export writes simulation results for downstream analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/simulator"
	"github.com/kilianp07/drtmdp/core/statespace"
)

// Revenue is the per-trial record written by WriteRevenueJSON.
type Revenue struct {
	Number   int     `json:"number"`
	Revenue  float64 `json:"revenue"`
	Feasible bool    `json:"feasible"`
}

// WriteRevenueJSON writes one object per trial as a JSON array.
func WriteRevenueJSON(w io.Writer, trials []simulator.Trial) error {
	out := make([]Revenue, len(trials))
	for i, tr := range trials {
		out[i] = Revenue{Number: tr.Number, Revenue: tr.Revenue, Feasible: tr.Feasible}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// WriteRevenueCSV writes the revenue of every trial.
func WriteRevenueCSV(w io.Writer, trials []simulator.Trial) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"number", "revenue"}); err != nil {
		return err
	}
	for _, tr := range trials {
		rec := []string{strconv.Itoa(tr.Number), formatFloat(tr.Revenue)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTraceCSV writes one row per visited state: the vehicles' service link
// ids followed by every vehicle's status for every demand. Trials must have
// been simulated with tracing enabled.
func WriteTraceCSV(w io.Writer, trials []simulator.Trial, states *statespace.Space, g *graph.Graph) error {
	fleet, demands := states.Params().Fleet, len(states.Demands())
	cw := csv.NewWriter(w)
	header := []string{"trial", "t", "action", "reward"}
	for v := 0; v < fleet; v++ {
		header = append(header, fmt.Sprintf("l_%d", v))
	}
	for v := 0; v < fleet; v++ {
		for k := 0; k < demands; k++ {
			header = append(header, fmt.Sprintf("sf_%d_%d", v, k))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, 0, len(header))
	for _, tr := range trials {
		for _, step := range tr.Trace {
			if step.State < 0 || step.State >= states.Len() {
				return fmt.Errorf("trial %d: state %d out of range", tr.Number, step.State)
			}
			st := states.State(step.State)
			rec = append(rec[:0], strconv.Itoa(tr.Number), strconv.Itoa(step.T), strconv.Itoa(step.Action), formatFloat(step.Reward))
			for _, vs := range st.Vehicles {
				rec = append(rec, strconv.Itoa(g.Link(vs.Link).ID))
			}
			for _, vs := range st.Vehicles {
				for _, s := range vs.Status {
					rec = append(rec, strconv.Itoa(int(s)))
				}
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
