// Package network holds the immutable road/airspace adjacency and answers
// neighbor and edge-legality queries per vehicle class. Costs live in the
// cost package, not here.
package network

import (
	"fmt"

	"fleetnav/internal/model"
)

// Network is the N×N directed road-type table. Immutable once built.
type Network struct {
	adj [][]model.RoadType
	n   int
}

// Neighbor pairs a reachable node with the road type of the connecting edge.
type Neighbor struct {
	Node int
	Road model.RoadType
}

// New validates and builds a network from the raw adjacency matrix.
func New(matrix [][]int) (*Network, error) {
	n := len(matrix)
	if n == 0 {
		return nil, fmt.Errorf("map: adjacency matrix is empty")
	}
	adj := make([][]model.RoadType, n)
	for i, row := range matrix {
		if len(row) != n {
			return nil, fmt.Errorf("map: row %d has %d entries, want %d", i, len(row), n)
		}
		adj[i] = make([]model.RoadType, n)
		for j, v := range row {
			rt := model.RoadType(v)
			if !rt.Valid() {
				return nil, fmt.Errorf("map: invalid road type %d at [%d][%d]", v, i, j)
			}
			adj[i][j] = rt
		}
	}
	return &Network{adj: adj, n: n}, nil
}

// NumNodes returns N.
func (g *Network) NumNodes() int { return g.n }

// Neighbors returns every node directly reachable from node for the given
// vehicle class, in ascending node order so tie-breaks downstream are
// reproducible. Trucks are excluded from airspace edges.
func (g *Network) Neighbors(node int, class model.VehicleClass) []Neighbor {
	g.checkNode(node)
	var out []Neighbor
	for next, rt := range g.adj[node] {
		if rt == model.NoRoad {
			continue
		}
		if class == model.Truck && rt == model.Airspace {
			continue
		}
		out = append(out, Neighbor{Node: next, Road: rt})
	}
	return out
}

// IsValidEdge reports whether the vehicle class may traverse from→to.
func (g *Network) IsValidEdge(from, to int, class model.VehicleClass) bool {
	g.checkNode(from)
	g.checkNode(to)
	rt := g.adj[from][to]
	if rt == model.NoRoad {
		return false
	}
	if class == model.Truck && rt == model.Airspace {
		return false
	}
	return true
}

// RoadType returns the raw table entry with no class filtering.
func (g *Network) RoadType(from, to int) model.RoadType {
	g.checkNode(from)
	g.checkNode(to)
	return g.adj[from][to]
}

// checkNode panics on an out-of-range index: callers inside the solver must
// never hand us an invalid node, so this is an invariant breach, not input.
func (g *Network) checkNode(node int) {
	if node < 0 || node >= g.n {
		panic(fmt.Sprintf("network: node %d out of range [0,%d)", node, g.n))
	}
}
