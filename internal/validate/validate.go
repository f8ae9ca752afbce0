// Package validate re-derives the legality of a finished solution from the
// network alone. It is a post-hoc check with no influence on the solve.
package validate

import (
	"fmt"

	"fleetnav/internal/model"
	"fleetnav/internal/network"
)

// Solution checks structure and edge legality for every fleet vehicle:
// all ids present, every path exactly T long, every step a wait or a legal
// edge for the vehicle's class. Returns all errors found.
func Solution(sol model.Solution, net *network.Network, horizon int) []string {
	var errs []string

	for _, id := range model.FleetIDs() {
		path, ok := sol[id]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing vehicle: %s", id))
			continue
		}
		class, _ := model.ClassOf(id)

		if len(path) != horizon {
			errs = append(errs, fmt.Sprintf("%s: path length %d != %d", id, len(path), horizon))
		}

		for t := 0; t < len(path)-1; t++ {
			cur, next := path[t], path[t+1]
			if cur == next {
				continue // waiting is always valid
			}
			if cur < 0 || cur >= net.NumNodes() || next < 0 || next >= net.NumNodes() {
				errs = append(errs, fmt.Sprintf("%s at t=%d: node out of range (%d -> %d)", id, t, cur, next))
				continue
			}
			if net.IsValidEdge(cur, next, class) {
				continue
			}
			switch rt := net.RoadType(cur, next); {
			case rt == model.NoRoad:
				errs = append(errs, fmt.Sprintf("%s at t=%d: no road from %d to %d", id, t, cur, next))
			case rt == model.Airspace && class == model.Truck:
				errs = append(errs, fmt.Sprintf("%s at t=%d: truck cannot use airspace (road type 0)", id, t))
			default:
				errs = append(errs, fmt.Sprintf("%s at t=%d: illegal edge from %d to %d", id, t, cur, next))
			}
		}
	}
	return errs
}
