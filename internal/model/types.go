package model

import "fmt"

// RoadType labels a directed edge in the network adjacency table.
// -1 means no road, 0 is airspace (drones only), 1..5 are ground classes
// with increasing cost multiplier.
type RoadType int

const (
	NoRoad   RoadType = -1
	Airspace RoadType = 0
	// Ground road classes are 1..5; they carry no named constants because
	// the class value itself is the cost multiplier.
	MaxGroundClass = 5
)

// Valid reports whether r is part of the road-type vocabulary.
func (r RoadType) Valid() bool {
	return r >= NoRoad && r <= MaxGroundClass
}

// Ground reports whether r is a ground road class (1..5).
func (r RoadType) Ground() bool {
	return r >= 1 && r <= MaxGroundClass
}

// VehicleClass determines which road types a vehicle may use and which
// weather blocking rule applies to it.
type VehicleClass string

const (
	Truck VehicleClass = "truck"
	Drone VehicleClass = "drone"
)

// MapData is the parsed road-network input document.
type MapData struct {
	N           int                  `json:"N"`
	T           int                  `json:"T"`
	Map         [][]int              `json:"map"`
	RoadWeights map[string][]float64 `json:"road_weights"`
}

// SensorData holds the four weather time series, each of length >= T.
type SensorData struct {
	EarthShock []float64 `json:"earth_shock"`
	Rainfall   []float64 `json:"rainfall"`
	Wind       []float64 `json:"wind"`
	Visibility []float64 `json:"visibility"`
}

// Objective is a time-windowed delivery target.
type Objective struct {
	Node     int     `json:"node"`
	Release  int     `json:"release"`
	Deadline int     `json:"deadline"`
	Points   float64 `json:"points"`
}

// MissionData is the parsed objectives input document.
type MissionData struct {
	StartNode          int         `json:"start_node"`
	LatePenaltyPerStep float64     `json:"late_penalty_per_step"`
	Objectives         []Objective `json:"objectives"`
}

// Vehicle is the planner-owned mutable state for one fleet member.
// Invariant: CurrentTime == len(Path)-1 at every point of the solve.
type Vehicle struct {
	ID          string
	Class       VehicleClass
	CurrentNode int
	CurrentTime int
	Path        []int
	TotalCost   float64
	TotalPoints float64
	Assigned    []Objective
}

// Solution maps each vehicle id to its full path, one node per timestep.
// Every path has length T once a solve completes.
type Solution map[string][]int

// VehicleStats is the per-vehicle summary reported after a solve.
type VehicleStats struct {
	ID         string  `json:"id"`
	Class      string  `json:"class"`
	PathLen    int     `json:"pathLen"`
	TravelCost float64 `json:"travelCost"`
	Points     float64 `json:"points"`
	Objectives int     `json:"objectives"`
}

// SolveSummary aggregates the outcome of one solve run.
type SolveSummary struct {
	Score      float64        `json:"score"`
	Completed  int            `json:"completed"`
	Objectives int            `json:"objectives"`
	Vehicles   []VehicleStats `json:"vehicles"`
}

// SolveRun is the stored record of one solve invocation.
type SolveRun struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenantId"`
	Status    string        `json:"status"` // pending, running, completed, failed
	CreatedAt string        `json:"createdAt"`
	Error     string        `json:"error,omitempty"`
	Summary   *SolveSummary `json:"summary,omitempty"`
}

// SolveRequest is the API payload carrying the three input documents inline.
type SolveRequest struct {
	TenantID   string      `json:"tenantId"`
	Map        MapData     `json:"map"`
	Sensors    SensorData  `json:"sensors"`
	Objectives MissionData `json:"objectives"`
}

// SubscriptionRequest registers a webhook endpoint for solve events.
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

// Subscription is a stored webhook registration.
type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

// FleetIDs returns the fixed fleet roster: truck1..truck3, drone1..drone2.
// Fleet shape is a parameter of the problem family, not configuration.
func FleetIDs() []string {
	return []string{"truck1", "truck2", "truck3", "drone1", "drone2"}
}

// ClassOf derives the vehicle class from a fleet id.
func ClassOf(id string) (VehicleClass, error) {
	switch {
	case len(id) >= 5 && id[:5] == "truck":
		return Truck, nil
	case len(id) >= 5 && id[:5] == "drone":
		return Drone, nil
	}
	return "", fmt.Errorf("unknown vehicle id: %s", id)
}
