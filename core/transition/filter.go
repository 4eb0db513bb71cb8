package transition

import (
	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
)

// Probability evaluates P(next | a) directly from the status rules instead of
// generating successors. It rejects every candidate that breaks a rule and
// weights the survivors by the bid outcomes. Build and Probability agree on
// every pair; the latter is kept for verification.
func Probability(svc *graph.Service, bids BidSource, cur *model.State, a *model.Action, next *model.State) (float64, error) {
	if next.T != cur.T+1 || len(next.Vehicles) != len(a.NextLinks) {
		return 0, nil
	}
	for v, vs := range next.Vehicles {
		if vs.Link != a.NextLinks[v] {
			return 0, nil
		}
	}
	gr := svc.Graph()
	p := 1.0
	for k := range svc.Demands {
		pickup, dropoff := gr.Link(svc.Pickup[k]), gr.Link(svc.Dropoff[k])
		pending := cur.Pending(k)
		for v, vs := range cur.Vehicles {
			now, then := vs.Status[k], next.Vehicles[v].Status[k]
			switch {
			case pending:
				want := model.NoBid
				if a.Accept[k] == v {
					want = model.Reserved
				}
				if then != want {
					return 0, nil
				}
			case now == model.Reserved:
				want := model.Reserved
				if gr.Link(a.NextLinks[v]).Origin == pickup.Destination {
					want = model.Boarded
				}
				if then != want {
					return 0, nil
				}
			case now == model.Boarded:
				want := model.Boarded
				if gr.Link(vs.Link).Destination == dropoff.Origin {
					want = model.NoBid
				}
				if then != want {
					return 0, nil
				}
			case then == model.Reserved || then == model.Boarded:
				return 0, nil
			}
		}
		if pending || !cur.Untouched(k) {
			continue
		}
		bid, err := bids.Bid(k, next.T, a.NextLinks)
		if err != nil {
			return 0, err
		}
		switch {
		case next.Pending(k):
			p *= bid
		case next.Untouched(k):
			p *= 1 - bid
		}
	}
	return p, nil
}
