package plan

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"fleetnav/internal/cost"
	"fleetnav/internal/model"
	"fleetnav/internal/network"
)

func mustNetwork(t *testing.T, matrix [][]int) *network.Network {
	t.Helper()
	g, err := network.New(matrix)
	if err != nil {
		t.Fatalf("network.New: %v", err)
	}
	return g
}

func mustCost(t *testing.T, weights map[string][]float64, sensors model.SensorData, horizon int) *cost.Model {
	t.Helper()
	m, err := cost.New(weights, sensors, horizon)
	if err != nil {
		t.Fatalf("cost.New: %v", err)
	}
	return m
}

func seriesOf(vals ...float64) []float64 { return vals }

func constSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func fullWeights(horizon int, override map[string][]float64) map[string][]float64 {
	out := map[string][]float64{}
	for rt := 1; rt <= model.MaxGroundClass; rt++ {
		key := fmt.Sprintf("%d", rt)
		if s, ok := override[key]; ok {
			out[key] = s
		} else {
			out[key] = constSeries(horizon, 1)
		}
	}
	return out
}

func calmSensors(horizon int) model.SensorData {
	return model.SensorData{
		EarthShock: constSeries(horizon, 0),
		Rainfall:   constSeries(horizon, 0),
		Wind:       constSeries(horizon, 0),
		Visibility: constSeries(horizon, 100),
	}
}

// bruteForceCost enumerates every move/wait sequence within the bounds and
// returns the cheapest cost reaching target at or before deadline.
func bruteForceCost(g *network.Network, m *cost.Model, start, startTime, target int, class model.VehicleClass, deadline, horizon int) float64 {
	best := math.Inf(1)
	var rec func(node, tm int, acc float64)
	rec = func(node, tm int, acc float64) {
		if node == target && tm <= deadline && acc < best {
			best = acc
		}
		if tm >= horizon || tm > deadline {
			return
		}
		rec(node, tm+1, acc)
		for _, nb := range g.Neighbors(node, class) {
			if c, ok := m.Cost(nb.Road, tm, class); ok {
				rec(nb.Node, tm+1, acc+c)
			}
		}
	}
	rec(start, startTime, 0)
	return best
}

func checkPathShape(t *testing.T, path []int, start, target, startTime, arrival, deadline int, g *network.Network, class model.VehicleClass) {
	t.Helper()
	if len(path) != arrival-startTime+1 {
		t.Fatalf("path length %d does not match arrival %d from %d", len(path), arrival, startTime)
	}
	if path[0] != start {
		t.Fatalf("path starts at %d, want %d", path[0], start)
	}
	if path[len(path)-1] != target {
		t.Fatalf("path ends at %d, want %d", path[len(path)-1], target)
	}
	if arrival > deadline {
		t.Fatalf("arrival %d after deadline %d", arrival, deadline)
	}
	for i := 0; i < len(path)-1; i++ {
		if path[i] == path[i+1] {
			continue // wait
		}
		if !g.IsValidEdge(path[i], path[i+1], class) {
			t.Fatalf("illegal edge %d -> %d at step %d", path[i], path[i+1], i)
		}
	}
}

func TestFindPathMatchesBruteForce(t *testing.T) {
	const horizon = 6
	// Diamond with a shortcut: 0 -> 1 -> 3, 0 -> 2 -> 3, plus 0 -> 3 on an
	// expensive class-5 road. Weights vary per timestep so waiting can pay.
	matrix := [][]int{
		{-1, 1, 2, 5},
		{-1, -1, -1, 1},
		{-1, -1, -1, 2},
		{-1, -1, -1, -1},
	}
	weights := fullWeights(horizon, map[string][]float64{
		"1": seriesOf(5, 1, 1, 1, 1, 1),
		"2": seriesOf(1, 4, 4, 1, 1, 1),
		"5": seriesOf(9, 9, 9, 9, 9, 9),
	})
	// Rain hard at t=0 and t=1 so trucks hit the blocking rule on heavy
	// weights but not light ones.
	sensors := model.SensorData{
		EarthShock: seriesOf(3, 3, 0, 0, 0, 0),
		Rainfall:   seriesOf(8, 8, 0, 0, 0, 0),
		Wind:       constSeries(horizon, 0),
		Visibility: constSeries(horizon, 100),
	}

	g := mustNetwork(t, matrix)
	m := mustCost(t, weights, sensors, horizon)
	pf := NewPathfinder(g, m, horizon)

	for _, class := range []model.VehicleClass{model.Truck, model.Drone} {
		for target := 0; target < 4; target++ {
			for deadline := 0; deadline < horizon; deadline++ {
				path, got, arrival, ok := pf.FindPath(0, 0, target, class, deadline)
				want := bruteForceCost(g, m, 0, 0, target, class, deadline, horizon)
				if !ok {
					if !math.IsInf(want, 1) {
						t.Fatalf("%s target=%d deadline=%d: no path found, brute force says %v", class, target, deadline, want)
					}
					if arrival != horizon {
						t.Fatalf("failed search must report arrival=T, got %d", arrival)
					}
					continue
				}
				if got != want {
					t.Fatalf("%s target=%d deadline=%d: cost %v, brute force %v", class, target, deadline, got, want)
				}
				checkPathShape(t, path, 0, target, 0, arrival, deadline, g, class)
			}
		}
	}
}

func TestFindPathTrivialWhenAlreadyThere(t *testing.T) {
	g := mustNetwork(t, [][]int{{-1}})
	m := mustCost(t, fullWeights(3, nil), calmSensors(3), 3)
	pf := NewPathfinder(g, m, 3)

	path, c, arrival, ok := pf.FindPath(0, 1, 0, model.Truck, 2)
	if !ok || c != 0 || arrival != 1 {
		t.Fatalf("got (%v, %v, %d, %v), want ([0], 0, 1, true)", path, c, arrival, ok)
	}
	if !reflect.DeepEqual(path, []int{0}) {
		t.Fatalf("path = %v, want [0]", path)
	}
}

func TestFindPathNoRoadIsNormalFailure(t *testing.T) {
	g := mustNetwork(t, [][]int{
		{-1, -1},
		{-1, -1},
	})
	m := mustCost(t, fullWeights(4, nil), calmSensors(4), 4)
	pf := NewPathfinder(g, m, 4)

	path, c, arrival, ok := pf.FindPath(0, 0, 1, model.Drone, 3)
	if ok || path != nil {
		t.Fatalf("expected no path, got %v", path)
	}
	if !math.IsInf(c, 1) || arrival != 4 {
		t.Fatalf("failure must report (+Inf, T), got (%v, %d)", c, arrival)
	}
}

func TestFindPathDeterministicAcrossCalls(t *testing.T) {
	matrix := [][]int{
		{-1, 1, 1, -1},
		{-1, -1, -1, 1},
		{-1, -1, -1, 1},
		{-1, -1, -1, -1},
	}
	g := mustNetwork(t, matrix)
	m := mustCost(t, fullWeights(5, nil), calmSensors(5), 5)
	pf := NewPathfinder(g, m, 5)

	// Two equal-cost routes exist (via 1 and via 2); the tie-break must pick
	// the same one every time.
	first, c1, a1, ok1 := pf.FindPath(0, 0, 3, model.Truck, 4)
	for i := 0; i < 5; i++ {
		path, c, a, ok := pf.FindPath(0, 0, 3, model.Truck, 4)
		if ok != ok1 || c != c1 || a != a1 || !reflect.DeepEqual(path, first) {
			t.Fatalf("call %d diverged: %v vs %v", i, path, first)
		}
	}
}

func TestFindPathWaitsOutTransientBlocking(t *testing.T) {
	const horizon = 5
	// Single class-1 edge 0 -> 1. At t=0 both truck conditions hold, so the
	// edge costs 5x; from t=1 on it is cheap. Waiting one step must win.
	matrix := [][]int{
		{-1, 1},
		{-1, -1},
	}
	weights := fullWeights(horizon, map[string][]float64{
		"1": seriesOf(4, 4, 4, 4, 4),
	})
	sensors := model.SensorData{
		EarthShock: seriesOf(3, 0, 0, 0, 0),
		Rainfall:   seriesOf(8, 0, 0, 0, 0),
		Wind:       constSeries(horizon, 0),
		Visibility: constSeries(horizon, 100),
	}
	g := mustNetwork(t, matrix)
	m := mustCost(t, weights, sensors, horizon)
	pf := NewPathfinder(g, m, horizon)

	path, c, arrival, ok := pf.FindPath(0, 0, 1, model.Truck, 4)
	if !ok {
		t.Fatal("expected a path")
	}
	if c != 4 {
		t.Fatalf("cost = %v, want 4 (wait then move)", c)
	}
	if arrival != 2 {
		t.Fatalf("arrival = %d, want 2", arrival)
	}
	if !reflect.DeepEqual(path, []int{0, 0, 1}) {
		t.Fatalf("path = %v, want [0 0 1]", path)
	}
}
