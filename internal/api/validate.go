package api

import (
	"fmt"
	"strings"

	"fleetnav/internal/inputs"
	"fleetnav/internal/model"
)

func validateSolveRequest(req *model.SolveRequest) error {
	// Structural input checks are shared with the batch CLI.
	return inputs.Validate(req.Map, req.Sensors, req.Objectives)
}

func validateSubscriptionRequest(req *model.SubscriptionRequest) error {
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		return fmt.Errorf("url must be http(s)")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	allowed := map[string]struct{}{"solve.completed": {}, "solve.failed": {}}
	for _, e := range req.Events {
		if _, ok := allowed[e]; !ok {
			return fmt.Errorf("unknown event type: %s (allowed: solve.completed, solve.failed)", e)
		}
	}
	return nil
}
