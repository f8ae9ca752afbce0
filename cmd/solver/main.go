// Command solver runs one batch solve: load inputs, plan routes, validate,
// and write solution.json. Orchestration only; the logic lives in internal/.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"fleetnav/internal/config"
	"fleetnav/internal/cost"
	"fleetnav/internal/inputs"
	"fleetnav/internal/model"
	"fleetnav/internal/network"
	"fleetnav/internal/plan"
	"fleetnav/internal/validate"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	verbose := flag.Bool("v", false, "print per-vehicle statistics")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Fleet Routing Optimization")

	fmt.Println("\n[1/4] Loading inputs...")
	mapData, sensorData, mission, err := inputs.LoadFiles(cfg.Inputs.Map, cfg.Inputs.Sensors, cfg.Inputs.Objectives)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  error loading inputs: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  loaded %d nodes, T=%d\n", mapData.N, mapData.T)
	fmt.Printf("  loaded %d objectives\n", len(mission.Objectives))

	fmt.Println("\n[2/4] Initializing system...")
	net, err := network.New(mapData.Map)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  error initializing: %v\n", err)
		os.Exit(1)
	}
	costs, err := cost.New(mapData.RoadWeights, sensorData, mapData.T)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  error initializing: %v\n", err)
		os.Exit(1)
	}
	planner := plan.NewPlanner(net, costs, mission.StartNode, mission.Objectives, mission.LatePenaltyPerStep, mapData.T)
	fmt.Printf("  network: %d nodes\n", net.NumNodes())
	fmt.Printf("  fleet: %d vehicles\n", len(planner.Vehicles()))

	fmt.Println("\n[3/4] Computing routes...")
	solution := planner.Solve()
	score := planner.TotalScore()
	completed := planner.CompletedCount()
	fmt.Printf("  total score: %.2f\n", score)
	fmt.Printf("  completed: %d/%d\n", completed, len(mission.Objectives))

	fmt.Println("\n[4/4] Saving solution...")
	if errs := validate.Solution(solution, net, mapData.T); len(errs) > 0 {
		fmt.Println("  warning: solution has validation errors:")
		for i, e := range errs {
			if i >= 3 {
				fmt.Printf("    ... and %d more errors\n", len(errs)-3)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
	if err := writeSolution(cfg.Output, solution); err != nil {
		fmt.Fprintf(os.Stderr, "  error saving solution: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  solution saved to %s\n", cfg.Output)

	if *verbose {
		printStats(planner)
	}

	fmt.Printf("\nScore: %.2f | Objectives: %d | Output: %s\n", score, completed, cfg.Output)
}

func writeSolution(path string, sol model.Solution) error {
	data, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printStats(p *plan.Planner) {
	fmt.Println("\nSolution statistics:")
	for _, v := range p.Vehicles() {
		fmt.Printf("\n%s:\n", v.ID)
		fmt.Printf("  path length: %d\n", len(v.Path))
		fmt.Printf("  travel cost: %.2f\n", v.TotalCost)
		fmt.Printf("  points earned: %.2f\n", v.TotalPoints)
		fmt.Printf("  objectives: %d\n", len(v.Assigned))
		for _, obj := range v.Assigned {
			fmt.Printf("    - node %d: %.1f points\n", obj.Node, obj.Points)
		}
	}
}
