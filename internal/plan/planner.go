// Package plan contains the solver core: the time-expanded pathfinder and
// the greedy priority-based assignment planner.
package plan

import (
	"sort"

	"fleetnav/internal/cost"
	"fleetnav/internal/model"
	"fleetnav/internal/network"
)

// Event reports planner progress to an optional observer. Used by the API
// layer to stream per-objective outcomes; the solver never blocks on it.
type Event struct {
	Type      string  `json:"type"` // objective.assigned, objective.skipped
	Objective int     `json:"objective"`
	Node      int     `json:"node"`
	VehicleID string  `json:"vehicleId,omitempty"`
	Arrival   int     `json:"arrival,omitempty"`
	Points    float64 `json:"points,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}

// Planner owns the mutable fleet state and runs one greedy solve:
// prioritize objectives, assign each to the best-benefit vehicle, pad every
// path to the horizon. Vehicle state is mutated in place and only here.
type Planner struct {
	net         *network.Network
	costs       *cost.Model
	pathfinder  *Pathfinder
	startNode   int
	objectives  []model.Objective
	latePenalty float64
	horizon     int
	vehicles    []*model.Vehicle

	// Observer, when set, receives one event per objective processed.
	Observer func(Event)
}

// NewPlanner builds a planner with the fixed fleet (3 trucks, 2 drones), all
// starting at startNode at time 0.
func NewPlanner(net *network.Network, costs *cost.Model, startNode int, objectives []model.Objective, latePenalty float64, horizon int) *Planner {
	p := &Planner{
		net:         net,
		costs:       costs,
		pathfinder:  NewPathfinder(net, costs, horizon),
		startNode:   startNode,
		objectives:  objectives,
		latePenalty: latePenalty,
		horizon:     horizon,
	}
	for _, id := range model.FleetIDs() {
		class, _ := model.ClassOf(id)
		p.vehicles = append(p.vehicles, &model.Vehicle{
			ID:          id,
			Class:       class,
			CurrentNode: startNode,
			Path:        []int{startNode},
		})
	}
	return p
}

// Vehicles exposes the fleet state, primarily for reporting after a solve.
func (p *Planner) Vehicles() []*model.Vehicle { return p.vehicles }

// Pathfinder exposes the planner's search instance, for metrics.
func (p *Planner) Pathfinder() *Pathfinder { return p.pathfinder }

// Solve runs the full assignment and returns the per-vehicle path map.
// Every returned path has length exactly T.
func (p *Planner) Solve() model.Solution {
	for i, obj := range p.prioritize() {
		p.assign(i, obj)
	}

	solution := model.Solution{}
	for _, v := range p.vehicles {
		for len(v.Path) < p.horizon {
			v.Path = append(v.Path, v.CurrentNode)
		}
		solution[v.ID] = v.Path
	}
	return solution
}

// TotalScore is points earned minus travel cost across the fleet.
func (p *Planner) TotalScore() float64 {
	total := 0.0
	for _, v := range p.vehicles {
		total += v.TotalPoints - v.TotalCost
	}
	return total
}

// CompletedCount is the number of objectives assigned across the fleet.
func (p *Planner) CompletedCount() int {
	n := 0
	for _, v := range p.vehicles {
		n += len(v.Assigned)
	}
	return n
}

// Summary builds the reporting record for a finished solve.
func (p *Planner) Summary() model.SolveSummary {
	s := model.SolveSummary{
		Score:      p.TotalScore(),
		Completed:  p.CompletedCount(),
		Objectives: len(p.objectives),
	}
	for _, v := range p.vehicles {
		s.Vehicles = append(s.Vehicles, model.VehicleStats{
			ID:         v.ID,
			Class:      string(v.Class),
			PathLen:    len(v.Path),
			TravelCost: v.TotalCost,
			Points:     v.TotalPoints,
			Objectives: len(v.Assigned),
		})
	}
	return s
}

// prioritize orders objectives by points per unit time window, most valuable
// first. The sort is stable so ties keep input order, which fixes the
// visitation order for the greedy phase.
func (p *Planner) prioritize() []model.Objective {
	out := make([]model.Objective, len(p.objectives))
	copy(out, p.objectives)
	key := func(o model.Objective) float64 {
		window := o.Deadline - o.Release + 1
		if window < 1 {
			window = 1
		}
		return -o.Points / float64(window)
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

// assign offers one objective to every candidate vehicle and commits the
// single strictly-positive best net benefit. Ties keep the earlier vehicle
// in fleet declaration order (trucks then drones). An objective with no
// positive-benefit candidate stays unassigned for good.
func (p *Planner) assign(idx int, obj model.Objective) {
	var (
		bestVehicle *model.Vehicle
		bestBenefit float64
		bestPath    []int
		bestCost    float64
		bestArrival int
		bestPoints  float64
		found       bool
	)

	for _, v := range p.vehicles {
		if v.CurrentTime > obj.Deadline {
			continue
		}
		path, pathCost, arrival, ok := p.pathfinder.FindPath(v.CurrentNode, v.CurrentTime, obj.Node, v.Class, obj.Deadline)
		if !ok {
			continue
		}

		// Arriving early: idle at the objective until the window opens.
		if arrival < obj.Release {
			for t := arrival; t < obj.Release; t++ {
				path = append(path, obj.Node)
			}
			arrival = obj.Release
		}

		points := p.Score(arrival, obj)
		benefit := points - pathCost
		if benefit > 0 && (!found || benefit > bestBenefit) {
			found = true
			bestVehicle = v
			bestBenefit = benefit
			bestPath = path
			bestCost = pathCost
			bestArrival = arrival
			bestPoints = points
		}
	}

	if !found {
		p.emit(Event{Type: "objective.skipped", Objective: idx, Node: obj.Node})
		return
	}

	p.commit(bestVehicle, bestPath, obj, bestPoints)
	p.emit(Event{
		Type:      "objective.assigned",
		Objective: idx,
		Node:      obj.Node,
		VehicleID: bestVehicle.ID,
		Arrival:   bestArrival,
		Points:    bestPoints,
		Cost:      bestCost,
	})
}

// commit applies the winning path to the vehicle. The first path node is the
// vehicle's current position and is skipped. Wait steps (node unchanged) are
// free by construction; moves accrue the edge cost re-evaluated at the
// vehicle's departure timestep.
func (p *Planner) commit(v *model.Vehicle, path []int, obj model.Objective, points float64) {
	for _, node := range path[1:] {
		if node == v.CurrentNode {
			v.Path = append(v.Path, node)
			v.CurrentTime++
			continue
		}
		edgeCost, ok := p.costs.Cost(p.net.RoadType(v.CurrentNode, node), v.CurrentTime, v.Class)
		v.Path = append(v.Path, node)
		v.CurrentNode = node
		v.CurrentTime++
		if ok {
			v.TotalCost += edgeCost
		}
	}
	v.TotalPoints += points
	v.Assigned = append(v.Assigned, obj)
}

// Score is the authority on points for an arrival time: zero outside
// [release, deadline], full points at release, late-penalized after, floored
// at zero.
func (p *Planner) Score(arrival int, obj model.Objective) float64 {
	if arrival < obj.Release || arrival > obj.Deadline {
		return 0
	}
	if arrival == obj.Release {
		return obj.Points
	}
	points := obj.Points - p.latePenalty*float64(arrival-obj.Release)
	if points < 0 {
		return 0
	}
	return points
}

func (p *Planner) emit(e Event) {
	if p.Observer != nil {
		p.Observer(e)
	}
}
