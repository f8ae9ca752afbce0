// Package cost encodes the traversal physics: base road weights, the
// weather blocking rules, and the final time-dependent edge costs.
package cost

import (
	"fmt"

	"fleetnav/internal/model"
)

// Model computes the cost to traverse a road type at a timestep for a
// vehicle class. Results are memoized per instance; the memo has no
// observable effect beyond speed.
type Model struct {
	weights map[string][]float64
	sensors model.SensorData
	memo    map[memoKey]memoVal
}

type memoKey struct {
	road  model.RoadType
	time  int
	class model.VehicleClass
}

type memoVal struct {
	cost     float64
	passable bool
}

// New builds a cost model. horizon is T; every weight and sensor series must
// cover at least that many timesteps.
func New(weights map[string][]float64, sensors model.SensorData, horizon int) (*Model, error) {
	for rt := 1; rt <= model.MaxGroundClass; rt++ {
		key := fmt.Sprintf("%d", rt)
		series, ok := weights[key]
		if !ok {
			return nil, fmt.Errorf("road_weights: missing series for road type %q", key)
		}
		if len(series) < horizon {
			return nil, fmt.Errorf("road_weights[%q]: %d entries, want >= %d", key, len(series), horizon)
		}
		for t, w := range series {
			if w < 0 {
				return nil, fmt.Errorf("road_weights[%q][%d]: negative weight %v", key, t, w)
			}
		}
	}
	for name, series := range map[string][]float64{
		"earth_shock": sensors.EarthShock,
		"rainfall":    sensors.Rainfall,
		"wind":        sensors.Wind,
		"visibility":  sensors.Visibility,
	} {
		if len(series) < horizon {
			return nil, fmt.Errorf("sensor_data[%q]: %d entries, want >= %d", name, len(series), horizon)
		}
	}
	return &Model{weights: weights, sensors: sensors, memo: map[memoKey]memoVal{}}, nil
}

// Cost returns the cost to traverse an edge of the given road type at the
// given timestep, and whether the edge is passable at all for the class.
// Rules, in order: NoRoad is impassable; airspace is impassable for trucks
// and free for drones; ground classes cost weight*class, multiplied by 5
// when the weather blocking rule fires.
func (m *Model) Cost(road model.RoadType, time int, class model.VehicleClass) (float64, bool) {
	key := memoKey{road: road, time: time, class: class}
	if v, ok := m.memo[key]; ok {
		return v.cost, v.passable
	}
	c, passable := m.compute(road, time, class)
	m.memo[key] = memoVal{cost: c, passable: passable}
	return c, passable
}

func (m *Model) compute(road model.RoadType, time int, class model.VehicleClass) (float64, bool) {
	if road == model.NoRoad {
		return 0, false
	}
	if road == model.Airspace {
		if class == model.Truck {
			return 0, false
		}
		return 0, true
	}
	// Ground classes 1..5. An out-of-range timestep is a solver bug; the
	// slice index below fails loudly rather than clamping.
	w := m.weights[fmt.Sprintf("%d", road)][time]
	base := w * float64(road)
	if m.blocked(w, time, class) {
		return base * 5, true
	}
	return base, true
}

// blocked applies the hazard rule. Both thresholds must hold (strict
// comparisons), and both sides multiply the base weight, not the final cost.
func (m *Model) blocked(baseWeight float64, time int, class model.VehicleClass) bool {
	if class == model.Truck {
		shock := baseWeight*m.sensors.EarthShock[time] > 10
		rain := baseWeight*m.sensors.Rainfall[time] > 30
		return shock && rain
	}
	gust := baseWeight*m.sensors.Wind[time] > 60
	blind := baseWeight*m.sensors.Visibility[time] < 6
	return gust && blind
}
