package inputs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fleetnav/internal/model"
)

func validMap() model.MapData {
	w := map[string][]float64{}
	for _, k := range []string{"1", "2", "3", "4", "5"} {
		w[k] = []float64{1, 1, 1}
	}
	return model.MapData{
		N: 2,
		T: 3,
		Map: [][]int{
			{-1, 1},
			{0, -1},
		},
		RoadWeights: w,
	}
}

func validSensors() model.SensorData {
	return model.SensorData{
		EarthShock: []float64{0, 0, 0},
		Rainfall:   []float64{0, 0, 0},
		Wind:       []float64{0, 0, 0},
		Visibility: []float64{10, 10, 10},
	}
}

func validMission() model.MissionData {
	return model.MissionData{
		StartNode:          0,
		LatePenaltyPerStep: 1,
		Objectives: []model.Objective{
			{Node: 1, Release: 0, Deadline: 2, Points: 5},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validMap(), validSensors(), validMission()); err != nil {
		t.Fatalf("valid inputs rejected: %v", err)
	}
}

func TestValidateNamesOffendingField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.MapData, *model.SensorData, *model.MissionData)
		want   string
	}{
		{"zero N", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { m.N = 0 }, "map.N"},
		{"zero T", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { m.T = 0 }, "map.T"},
		{"row count", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { m.Map = m.Map[:1] }, "map.map"},
		{"ragged row", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { m.Map[1] = []int{0} }, "map.map[1]"},
		{"bad road type", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { m.Map[0][1] = 9 }, "map.map[0][1]"},
		{"missing weight series", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { delete(m.RoadWeights, "4") }, `road_weights: missing series "4"`},
		{"short weight series", func(m *model.MapData, _ *model.SensorData, _ *model.MissionData) { m.RoadWeights["2"] = []float64{1} }, `road_weights["2"]`},
		{"short sensor series", func(_ *model.MapData, s *model.SensorData, _ *model.MissionData) { s.Wind = []float64{0} }, "sensor_data.wind"},
		{"start node range", func(_ *model.MapData, _ *model.SensorData, o *model.MissionData) { o.StartNode = 2 }, "objectives.start_node"},
		{"negative penalty", func(_ *model.MapData, _ *model.SensorData, o *model.MissionData) { o.LatePenaltyPerStep = -1 }, "late_penalty_per_step"},
		{"objective node range", func(_ *model.MapData, _ *model.SensorData, o *model.MissionData) { o.Objectives[0].Node = -1 }, "objectives[0].node"},
		{"inverted window", func(_ *model.MapData, _ *model.SensorData, o *model.MissionData) { o.Objectives[0].Release = 3; o.Objectives[0].Deadline = 1 }, "objectives[0]"},
		{"negative points", func(_ *model.MapData, _ *model.SensorData, o *model.MissionData) { o.Objectives[0].Points = -2 }, "objectives[0].points"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, s, o := validMap(), validSensors(), validMission()
			tc.mutate(&m, &s, &o)
			err := Validate(m, s, o)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not name %q", err, tc.want)
			}
		})
	}
}

func TestLoadFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	mapPath := write("map.json", `{
		"N": 2, "T": 2,
		"map": [[-1, 1], [0, -1]],
		"road_weights": {"1": [1,1], "2": [1,1], "3": [1,1], "4": [1,1], "5": [1,1]}
	}`)
	sensorPath := write("sensors.json", `{
		"earth_shock": [0,0], "rainfall": [0,0], "wind": [0,0], "visibility": [9,9]
	}`)
	objPath := write("objectives.json", `{
		"start_node": 0,
		"late_penalty_per_step": 0.5,
		"objectives": [{"node": 1, "release": 0, "deadline": 1, "points": 3}]
	}`)

	m, s, o, err := LoadFiles(mapPath, sensorPath, objPath)
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if m.N != 2 || m.T != 2 {
		t.Fatalf("map = %+v", m)
	}
	if len(s.Visibility) != 2 || s.Visibility[0] != 9 {
		t.Fatalf("sensors = %+v", s)
	}
	if o.StartNode != 0 || o.LatePenaltyPerStep != 0.5 {
		t.Fatalf("mission = %+v", o)
	}
	if len(o.Objectives) != 1 || o.Objectives[0].Release != 0 || o.Objectives[0].Deadline != 1 {
		t.Fatalf("objectives = %+v", o.Objectives)
	}
}

func TestLoadFilesMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.json")
	if err := os.WriteFile(good, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := LoadFiles(filepath.Join(dir, "absent.json"), good, good); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, _, _, err := LoadFiles(bad, good, good); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
