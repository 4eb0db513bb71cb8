package choice

import (
	"errors"
	"math"

	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
)

// Network is the time-expanded rider network of one demand: the static
// rider links followed by the wait chain and the service chain. Utilities,
// indicators and values are indexed [link][t] for t = 0 .. te+1 and belong to
// this network only.
type Network struct {
	Graph  *graph.Graph
	Demand model.Demand
	params model.Params

	Origin       int
	Destination  int
	FirstWait    int
	FirstService int
	WaitLen      int
	ServiceLen   int

	Utility   [][]float64
	Indicator [][]bool
	Value     [][]float64
}

// ServiceLength is the number of synthetic in-vehicle links for a trip of
// the given hop count.
func ServiceLength(exponent float64, trip int) int {
	return max(1, int(exponent*float64(trip-1)))
}

// WaitLength turns the mean exponent-weighted fleet distance to the pick-up
// into the number of synthetic wait links.
func WaitLength(meanDistance float64) int {
	if meanDistance <= 1 {
		return 1
	}
	return max(1, int(meanDistance-1))
}

// augment appends the wait and service chains to the rider links. Synthetic
// nodes and ids are allocated above the largest ones in use.
func augment(rider []model.Link, origin, destination model.Link, waitLen, serviceLen int) (links []model.Link, firstWait, firstService int) {
	nextNode, nextID := 0, 0
	for _, l := range rider {
		nextNode = max(nextNode, l.Origin, l.Destination)
		nextID = max(nextID, l.ID)
	}
	fresh := func() int { nextNode++; return nextNode }
	id := func() int { nextID++; return nextID }

	links = append(make([]model.Link, 0, len(rider)+waitLen+serviceLen), rider...)
	firstWait = len(links)
	firstService = firstWait + waitLen

	serviceStart := fresh()
	from := origin.Destination
	for i := 0; i < waitLen; i++ {
		to := serviceStart
		if i < waitLen-1 {
			to = fresh()
		}
		links = append(links, model.Link{ID: id(), Origin: from, Destination: to})
		from = to
	}
	for i := 0; i < serviceLen; i++ {
		to := destination.Origin
		if i < serviceLen-1 {
			to = fresh()
		}
		links = append(links, model.Link{ID: id(), Origin: from, Destination: to})
		from = to
	}
	return links, firstWait, firstService
}

// utilities fills the immediate utility of every link for t = 0 .. te.
// At the bid step tb-1 only the first wait link and a self-looping origin
// are open; the first wait link is closed at every other step.
func (n *Network) utilities() {
	d, p := n.Demand, n.params
	step := d.BetaTime * p.StepMinutes
	bid := d.BookingTime - 1
	negInf := math.Inf(-1)
	for i, l := range n.Graph.Links() {
		row := make([]float64, d.Deadline+2)
		for t := range row {
			switch {
			case i == n.FirstWait && t == bid:
				row[t] = p.ServiceConstant + step + d.BetaFare*(p.FlatFare+p.DistanceFare*float64(n.ServiceLen)) + d.BetaExperience
			case i == n.FirstWait:
				row[t] = negInf
			case t == bid && !(i == n.Origin && l.SelfLoop()):
				row[t] = negInf
			case i < n.FirstWait:
				row[t] = step + d.BetaFare*l.Fare
			default:
				row[t] = step
			}
		}
		n.Utility[i] = row
	}
}

// indicators marks the (link, t) pairs that lie on some path leaving the
// origin no earlier than tb-1 and reaching the destination by te.
func (n *Network) indicators() error {
	oracle := graph.NewOracle(n.Graph)
	d := n.Demand
	for i := range n.Graph.Links() {
		row := make([]bool, d.Deadline+2)
		n.Indicator[i] = row
		fromOrigin, ok, err := reach(oracle, n.Origin, i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		toDest, ok, err := reach(oracle, i, n.Destination)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for t := range row {
			row[t] = fromOrigin+d.BookingTime-1 <= t && t+toDest <= d.Deadline
		}
	}
	return nil
}

func reach(o *graph.Oracle, from, to int) (int, bool, error) {
	d, err := o.DistanceIndex(from, to)
	if err == nil {
		return d, true, nil
	}
	if errors.Is(err, model.ErrGraphUnreachable) {
		return 0, false, nil
	}
	return 0, false, err
}

// open reports whether the move i -> j at t is allowed by the indicators.
func (n *Network) open(i, j, t int) bool {
	return n.Indicator[i][t] && n.Indicator[j][t+1]
}
