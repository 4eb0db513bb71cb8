// Package choice implements the recursive-logit rider model that turns the
// fleet position into the probability that a demand bids for the service.
package choice

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/logger"
	"github.com/kilianp07/drtmdp/core/model"
)

// Model derives bid probabilities for every demand. It is safe for
// concurrent use; results are cached per demand and wait-chain length, the
// only input that depends on the fleet position.
type Model struct {
	params  model.Params
	rider   []model.Link
	origin  []int
	dest    []int
	service *graph.Service
	log     logger.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[cacheKey]float64
}

type cacheKey struct{ demand, wait int }

// New resolves every demand's origin and destination on the rider network.
func New(p model.Params, rider *graph.Graph, svc *graph.Service, log logger.Logger) (*Model, error) {
	m := &Model{
		params:  p,
		rider:   rider.Links(),
		origin:  make([]int, len(svc.Demands)),
		dest:    make([]int, len(svc.Demands)),
		service: svc,
		log:     log,
		cache:   make(map[cacheKey]float64),
	}
	for k, d := range svc.Demands {
		o, err := rider.Index(d.Origin)
		if err != nil {
			return nil, fmt.Errorf("demand %d origin: %w", d.ID, err)
		}
		dst, err := rider.Index(d.Destination)
		if err != nil {
			return nil, fmt.Errorf("demand %d destination: %w", d.ID, err)
		}
		m.origin[k], m.dest[k] = o, dst
	}
	return m, nil
}

// WaitLength is the wait-chain length of demand k when the vehicles stand
// on the given service links.
func (m *Model) WaitLength(k int, positions []int) (int, error) {
	if len(positions) == 0 {
		return 1, nil
	}
	e := m.service.Demands[k].RouteExponent
	sum := 0.0
	for _, pos := range positions {
		d, err := m.service.DistanceIndex(pos, m.service.Pickup[k])
		if err != nil {
			return 0, fmt.Errorf("demand %d: fleet to pick-up: %w", m.service.Demands[k].ID, err)
		}
		sum += e * float64(d)
	}
	return WaitLength(sum / float64(len(positions))), nil
}

// Bid returns the probability that demand k moves to BidPending when the
// fleet arrives at t on the given links. It is zero unless t is tb-1.
func (m *Model) Bid(k, t int, positions []int) (float64, error) {
	if t != m.service.Demands[k].BookingTime-1 {
		return 0, nil
	}
	w, err := m.WaitLength(k, positions)
	if err != nil {
		return 0, err
	}
	return m.BidProbability(k, w)
}

// BidProbability is the share of the origin flow entering the wait chain at
// tb-1 for the given wait-chain length.
func (m *Model) BidProbability(k, waitLen int) (float64, error) {
	key := cacheKey{k, waitLen}
	m.mu.RLock()
	p, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}
	v, err, _ := m.group.Do(strconv.Itoa(k)+"/"+strconv.Itoa(waitLen), func() (any, error) {
		n, err := m.Solve(k, waitLen)
		if err != nil {
			return 0.0, err
		}
		bid := n.Demand.BookingTime - 1
		probs, err := n.Transitions(bid)
		if err != nil {
			return 0.0, err
		}
		p := probs.At(n.Origin, n.FirstWait)
		m.mu.Lock()
		m.cache[key] = p
		m.mu.Unlock()
		m.log.Debugw("bid probability", map[string]any{
			"demand": n.Demand.ID, "wait_links": waitLen, "service_links": n.ServiceLen, "p": p,
		})
		return p, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Solve builds the augmented network of demand k and runs the backward
// induction over its expected maximum utilities.
func (m *Model) Solve(k, waitLen int) (*Network, error) {
	d := m.service.Demands[k]
	serviceLen := ServiceLength(d.RouteExponent, m.service.Trip[k])
	links, firstWait, firstService := augment(m.rider, m.rider[m.origin[k]], m.rider[m.dest[k]], waitLen, serviceLen)
	g, err := graph.New(links)
	if err != nil {
		return nil, err
	}
	n := &Network{
		Graph:        g,
		Demand:       d,
		params:       m.params,
		Origin:       m.origin[k],
		Destination:  m.dest[k],
		FirstWait:    firstWait,
		FirstService: firstService,
		WaitLen:      waitLen,
		ServiceLen:   serviceLen,
		Utility:      make([][]float64, len(links)),
		Indicator:    make([][]bool, len(links)),
		Value:        make([][]float64, len(links)),
	}
	n.utilities()
	if err := n.indicators(); err != nil {
		return nil, err
	}
	n.induct()
	return n, nil
}

// induct computes V(i,t) for t = te down to tb-1. V is zero at te and on
// the destination link throughout.
func (n *Network) induct() {
	d, p := n.Demand, n.params
	for i := range n.Value {
		n.Value[i] = make([]float64, d.Deadline+2)
	}
	terms := make([]float64, 0, 8)
	for t := d.Deadline - 1; t >= d.BookingTime-1; t-- {
		for i := range n.Value {
			if i == n.Destination {
				continue
			}
			terms = n.exponents(terms[:0], i, t)
			if len(terms) == 0 {
				n.Value[i][t] = 0
				continue
			}
			n.Value[i][t] = p.Scale * floats.LogSumExp(terms)
		}
	}
}

// exponents appends (v(j,t) + beta*V(j,t+1)) / mu for every open successor
// with a finite utility.
func (n *Network) exponents(dst []float64, i, t int) []float64 {
	p := n.params
	for _, j := range n.Graph.Successors(i) {
		if !n.open(i, j, t) || math.IsInf(n.Utility[j][t], -1) {
			continue
		}
		dst = append(dst, (n.Utility[j][t]+p.Discount*n.Value[j][t+1])/p.Scale)
	}
	return dst
}

// Transitions returns the link-to-link choice probabilities at t. Rows of
// links closed at t are zero and the destination is absorbing. A link with
// open successors that all carry -Inf utility yields a DegeneracyError.
func (n *Network) Transitions(t int) (*mat.Dense, error) {
	d := n.Demand
	if t < d.BookingTime-1 || t >= d.Deadline {
		return nil, fmt.Errorf("t=%d outside choice window [%d,%d)", t, d.BookingTime-1, d.Deadline)
	}
	size := n.Graph.Len()
	probs := mat.NewDense(size, size, nil)
	p := n.params
	terms := make([]float64, 0, 8)
	for i := 0; i < size; i++ {
		if !n.Indicator[i][t] {
			continue
		}
		if i == n.Destination {
			probs.Set(i, i, 1)
			continue
		}
		required := false
		for _, j := range n.Graph.Successors(i) {
			if n.open(i, j, t) {
				required = true
				break
			}
		}
		if !required {
			continue
		}
		terms = n.exponents(terms[:0], i, t)
		if len(terms) == 0 {
			return nil, &model.DegeneracyError{Demand: d.ID, Link: n.Graph.Link(i).ID, T: t}
		}
		lse := floats.LogSumExp(terms)
		for _, j := range n.Graph.Successors(i) {
			if !n.open(i, j, t) || math.IsInf(n.Utility[j][t], -1) {
				continue
			}
			probs.Set(i, j, math.Exp((n.Utility[j][t]+p.Discount*n.Value[j][t+1])/p.Scale-lse))
		}
	}
	return probs, nil
}
