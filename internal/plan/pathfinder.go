package plan

import (
	"container/heap"
	"math"

	"fleetnav/internal/cost"
	"fleetnav/internal/model"
	"fleetnav/internal/network"
)

// state is a (node, time) pair in the time-expanded graph. The same node at
// different times is a different state.
type state struct {
	node int
	time int
}

// searchNode is a frontier entry. Paths are reconstructed through parent
// links instead of being copied on every push.
type searchNode struct {
	state  state
	g      float64 // accumulated cost
	seq    int     // insertion order, FIFO tie-break among equal g
	parent *searchNode
}

// frontier is a min-heap on (g, seq). Equal-cost entries pop in discovery
// order, which fixes which of several equal-cost paths is returned.
type frontier []*searchNode

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].g != f[j].g {
		return f[i].g < f[j].g
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(*searchNode)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return x
}

// Pathfinder runs uniform-cost search over (node, time) states with
// time-dependent edge costs. Each step is either a wait (free) or a move
// along one edge; time advances by exactly one per step.
type Pathfinder struct {
	net      *network.Network
	costs    *cost.Model
	horizon  int
	expanded int64
}

// NewPathfinder builds a pathfinder bound to one network and cost model.
func NewPathfinder(net *network.Network, costs *cost.Model, horizon int) *Pathfinder {
	return &Pathfinder{net: net, costs: costs, horizon: horizon}
}

// Expanded returns the cumulative number of states popped across all calls.
func (p *Pathfinder) Expanded() int64 { return p.expanded }

// FindPath returns the minimum-cost node sequence from (startNode, startTime)
// to targetNode arriving at or before deadline, with its cost and arrival
// time. A missing path is a normal outcome, reported as
// (nil, +Inf, horizon, false).
func (p *Pathfinder) FindPath(startNode, startTime, targetNode int, class model.VehicleClass, deadline int) ([]int, float64, int, bool) {
	open := &frontier{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &searchNode{state: state{node: startNode, time: startTime}, g: 0, seq: seq})

	// best finalized cost per (node, time)
	visited := map[state]float64{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		p.expanded++

		if cur.state.node == targetNode && cur.state.time <= deadline {
			return reconstruct(cur), cur.g, cur.state.time, true
		}
		if cur.state.time >= p.horizon || cur.state.time > deadline {
			continue
		}
		if best, ok := visited[cur.state]; ok && best <= cur.g {
			continue
		}
		visited[cur.state] = cur.g

		// Wait in place, free.
		seq++
		heap.Push(open, &searchNode{
			state:  state{node: cur.state.node, time: cur.state.time + 1},
			g:      cur.g,
			seq:    seq,
			parent: cur,
		})

		// Move along each usable edge, costed at the departure timestep.
		for _, nb := range p.net.Neighbors(cur.state.node, class) {
			c, passable := p.costs.Cost(nb.Road, cur.state.time, class)
			if !passable {
				continue
			}
			seq++
			heap.Push(open, &searchNode{
				state:  state{node: nb.Node, time: cur.state.time + 1},
				g:      cur.g + c,
				seq:    seq,
				parent: cur,
			})
		}
	}

	return nil, math.Inf(1), p.horizon, false
}

func reconstruct(n *searchNode) []int {
	var rev []int
	for ; n != nil; n = n.parent {
		rev = append(rev, n.state.node)
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}
