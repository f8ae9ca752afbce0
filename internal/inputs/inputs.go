// Package inputs parses and structurally validates the three JSON input
// documents: the road map, the sensor traces, and the mission objectives.
// Validation failures name the offending field; the solve cannot proceed
// past them.
package inputs

import (
	"encoding/json"
	"fmt"
	"os"

	"fleetnav/internal/model"
)

// LoadFiles reads the three input documents from disk.
func LoadFiles(mapPath, sensorPath, objectivesPath string) (model.MapData, model.SensorData, model.MissionData, error) {
	var (
		m model.MapData
		s model.SensorData
		o model.MissionData
	)
	if err := readJSON(mapPath, &m); err != nil {
		return m, s, o, err
	}
	if err := readJSON(sensorPath, &s); err != nil {
		return m, s, o, err
	}
	if err := readJSON(objectivesPath, &o); err != nil {
		return m, s, o, err
	}
	if err := Validate(m, s, o); err != nil {
		return m, s, o, err
	}
	return m, s, o, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the structural invariants the solver relies on. The
// network and cost constructors re-verify their own slices; this pass exists
// so a bad input dies with a field name before any component is built.
func Validate(m model.MapData, s model.SensorData, o model.MissionData) error {
	if m.N <= 0 {
		return fmt.Errorf("map.N: must be positive, got %d", m.N)
	}
	if m.T <= 0 {
		return fmt.Errorf("map.T: must be positive, got %d", m.T)
	}
	if len(m.Map) != m.N {
		return fmt.Errorf("map.map: %d rows, want N=%d", len(m.Map), m.N)
	}
	for i, row := range m.Map {
		if len(row) != m.N {
			return fmt.Errorf("map.map[%d]: %d entries, want N=%d", i, len(row), m.N)
		}
		for j, v := range row {
			if !model.RoadType(v).Valid() {
				return fmt.Errorf("map.map[%d][%d]: invalid road type %d", i, j, v)
			}
		}
	}
	for rt := 1; rt <= model.MaxGroundClass; rt++ {
		key := fmt.Sprintf("%d", rt)
		series, ok := m.RoadWeights[key]
		if !ok {
			return fmt.Errorf("map.road_weights: missing series %q", key)
		}
		if len(series) < m.T {
			return fmt.Errorf("map.road_weights[%q]: %d entries, want >= T=%d", key, len(series), m.T)
		}
	}
	for name, series := range map[string][]float64{
		"earth_shock": s.EarthShock,
		"rainfall":    s.Rainfall,
		"wind":        s.Wind,
		"visibility":  s.Visibility,
	} {
		if len(series) < m.T {
			return fmt.Errorf("sensor_data.%s: %d entries, want >= T=%d", name, len(series), m.T)
		}
	}
	if o.StartNode < 0 || o.StartNode >= m.N {
		return fmt.Errorf("objectives.start_node: %d out of range [0,%d)", o.StartNode, m.N)
	}
	if o.LatePenaltyPerStep < 0 {
		return fmt.Errorf("objectives.late_penalty_per_step: must be >= 0, got %v", o.LatePenaltyPerStep)
	}
	for i, obj := range o.Objectives {
		if obj.Node < 0 || obj.Node >= m.N {
			return fmt.Errorf("objectives[%d].node: %d out of range [0,%d)", i, obj.Node, m.N)
		}
		if obj.Release > obj.Deadline {
			return fmt.Errorf("objectives[%d]: release %d after deadline %d", i, obj.Release, obj.Deadline)
		}
		if obj.Points < 0 {
			return fmt.Errorf("objectives[%d].points: must be >= 0, got %v", i, obj.Points)
		}
	}
	return nil
}
