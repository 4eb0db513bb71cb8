package actionspace

import (
	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
)

// Admissible reports whether a vehicle on link cur may move onto link next at
// time t given its status for demand k. Links that cannot reach the pick-up or
// drop-off of a held demand are never admissible.
func Admissible(svc *graph.Service, k int, status model.Status, cur, next, t int) (bool, error) {
	g := svc.Graph()
	curLink, nextLink := g.Link(cur), g.Link(next)
	if !curLink.Leads(nextLink) {
		return false, nil
	}
	d := svc.Demands[k]
	pickup, dropoff := g.Link(svc.Pickup[k]), g.Link(svc.Dropoff[k])
	switch status {
	case model.Reserved:
		if nextLink.Origin != pickup.Destination {
			toPickup, ok, err := svc.Reach(next, svc.Pickup[k])
			if err != nil || !ok {
				return false, err
			}
			return t+toPickup+svc.Trip[k] <= d.Deadline, nil
		}
		toDropoff, ok, err := svc.Reach(next, svc.Dropoff[k])
		if err != nil || !ok {
			return false, err
		}
		return t+toDropoff <= d.Deadline-1, nil
	case model.Boarded:
		if curLink.Destination == dropoff.Origin {
			return true, nil
		}
		toDropoff, ok, err := svc.Reach(next, svc.Dropoff[k])
		if err != nil || !ok {
			return false, err
		}
		return t+toDropoff <= d.Deadline-1, nil
	default:
		return true, nil
	}
}
