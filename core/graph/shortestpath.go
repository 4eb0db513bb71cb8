package graph

import (
	"sync"

	"github.com/kilianp07/drtmdp/core/model"
)

// Oracle answers hop-count queries between links of one Graph. Every link
// costs one step. Results are cached and the oracle is safe for concurrent use.
type Oracle struct {
	g     *Graph
	mu    sync.RWMutex
	cache map[[2]int]int
}

// NewOracle returns an oracle over g.
func NewOracle(g *Graph) *Oracle {
	return &Oracle{g: g, cache: make(map[[2]int]int)}
}

// Graph returns the underlying network.
func (o *Oracle) Graph() *Graph { return o.g }

// Distance returns the number of hops from link start to link goal, both
// given by id. A link is at distance zero from itself.
func (o *Oracle) Distance(start, goal int) (int, error) {
	s, err := o.g.Index(start)
	if err != nil {
		return 0, err
	}
	d, err := o.g.Index(goal)
	if err != nil {
		return 0, err
	}
	return o.DistanceIndex(s, d)
}

// DistanceIndex is Distance keyed by link indices.
func (o *Oracle) DistanceIndex(start, goal int) (int, error) {
	key := [2]int{start, goal}
	o.mu.RLock()
	d, ok := o.cache[key]
	o.mu.RUnlock()
	if ok {
		return d, nil
	}
	d, err := o.search(start, goal)
	if err != nil {
		return 0, err
	}
	o.mu.Lock()
	o.cache[key] = d
	o.mu.Unlock()
	return d, nil
}

// search runs a breadth-first relaxation, which is Dijkstra with unit weights.
// A link is queued only the first time it gets a distance, so it is finalised
// at most once; the revisit check guards that invariant and cannot trigger on
// any graph. Cycles in the network are fine.
func (o *Oracle) search(start, goal int) (int, error) {
	n := o.g.Len()
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}
	done := make([]bool, n)
	dist[start] = 0
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if done[cur] {
			return 0, &model.UnreachableError{From: o.g.links[start].ID, To: o.g.links[goal].ID, Cycle: true, Revisited: o.g.links[cur].ID}
		}
		if cur == goal {
			return dist[cur], nil
		}
		done[cur] = true
		for _, next := range o.g.succ[cur] {
			if dist[next] < 0 {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return 0, &model.UnreachableError{From: o.g.links[start].ID, To: o.g.links[goal].ID}
}
