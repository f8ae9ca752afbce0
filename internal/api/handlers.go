package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetnav/internal/buildinfo"
	"fleetnav/internal/cost"
	"fleetnav/internal/metrics"
	"fleetnav/internal/model"
	"fleetnav/internal/network"
	"fleetnav/internal/plan"
	"fleetnav/internal/store"
	"fleetnav/internal/validate"
)

// SolvesHandler serves /v1/solves: POST submits a solve (runs async),
// GET lists runs for the tenant.
func (s *Server) SolvesHandler(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenant(r)
	switch r.Method {
	case http.MethodPost:
		if !s.allowSolve(r) {
			writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many solve submissions", r.URL.Path)
			return
		}
		var req model.SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSolveRequest(&req); err != nil {
			writeProblem(w, http.StatusUnprocessableEntity, "Invalid solve request", err.Error(), r.URL.Path)
			return
		}
		run, err := s.Store.CreateSolveRun(r.Context(), tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
			return
		}
		go s.runSolve(run.ID, tenant, req)
		writeJSON(w, http.StatusAccepted, run)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, next, err := s.Store.ListSolveRuns(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
	}
}

// SolveByIDHandler serves /v1/solves/{id}, /{id}/solution,
// /{id}/events/stream (SSE), and /{id}/events/ws.
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenant(r)
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not found", "solve id required", r.URL.Path)
		return
	}
	switch {
	case len(parts) == 1:
		run, err := s.Store.GetSolveRun(r.Context(), tenant, id)
		if err != nil {
			s.writeStoreErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	case len(parts) == 2 && parts[1] == "solution":
		sol, err := s.Store.GetSolution(r.Context(), tenant, id)
		if err != nil {
			s.writeStoreErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sol)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		s.streamEvents(w, r, id)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "ws":
		s.ProgressWSHandler(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not found", "", r.URL.Path)
	}
}

// streamEvents serves solve progress as Server-Sent Events until the client
// disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, solveID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(solveID)
	defer s.Broker.Unsubscribe(solveID, ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
			if evt.Type == "solve.completed" || evt.Type == "solve.failed" {
				return
			}
		}
	}
}

// runSolve executes one solve in the background: build components, run the
// planner with a progress observer, post-check the solution, persist, and
// notify webhooks. Panics from contract breaches are recorded as failures.
func (s *Server) runSolve(runID, tenant string, req model.SolveRequest) {
	ctx := context.Background()
	_ = s.Store.MarkSolveRunning(ctx, runID)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			s.finishFailed(ctx, runID, tenant, fmt.Sprintf("solver panic: %v", rec))
		}
	}()

	net, err := network.New(req.Map.Map)
	if err != nil {
		s.finishFailed(ctx, runID, tenant, err.Error())
		return
	}
	costs, err := cost.New(req.Map.RoadWeights, req.Sensors, req.Map.T)
	if err != nil {
		s.finishFailed(ctx, runID, tenant, err.Error())
		return
	}
	planner := plan.NewPlanner(net, costs, req.Objectives.StartNode, req.Objectives.Objectives, req.Objectives.LatePenaltyPerStep, req.Map.T)
	planner.Observer = func(e plan.Event) {
		result := "assigned"
		if e.Type == "objective.skipped" {
			result = "skipped"
		}
		metrics.ObjectivesProcessed.WithLabelValues(result).Inc()
		data := map[string]any{"objective": e.Objective, "node": e.Node}
		if e.VehicleID != "" {
			data["vehicleId"] = e.VehicleID
			data["arrival"] = e.Arrival
			data["points"] = e.Points
			data["cost"] = e.Cost
		}
		s.Broker.Publish(runID, SSEEvent{Type: e.Type, Data: data})
	}

	sol := planner.Solve()
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	metrics.SearchStatesExpanded.Add(float64(planner.Pathfinder().Expanded()))

	if errs := validate.Solution(sol, net, req.Map.T); len(errs) > 0 {
		// The checker re-derives edge legality; a hit here is a solver bug,
		// not bad input. Surface it rather than storing a broken plan.
		s.finishFailed(ctx, runID, tenant, "solution failed validation: "+errs[0])
		return
	}

	summary := planner.Summary()
	if err := s.Store.CompleteSolveRun(ctx, runID, summary, sol); err != nil {
		log.Printf("complete solve %s: %v", runID, err)
	}
	metrics.Solves.WithLabelValues("completed").Inc()
	s.Broker.Publish(runID, SSEEvent{Type: "solve.completed", Data: map[string]any{
		"score": summary.Score, "completed": summary.Completed, "objectives": summary.Objectives,
	}})
	s.Pub.Emit(ctx, tenant, "solve.completed", map[string]any{"solveId": runID, "summary": summary})
}

func (s *Server) finishFailed(ctx context.Context, runID, tenant, msg string) {
	_ = s.Store.FailSolveRun(ctx, runID, msg)
	metrics.Solves.WithLabelValues("failed").Inc()
	s.Broker.Publish(runID, SSEEvent{Type: "solve.failed", Data: map[string]any{"error": msg}})
	s.Pub.Emit(ctx, tenant, "solve.failed", map[string]any{"solveId": runID, "error": msg})
}

func (s *Server) writeStoreErr(w http.ResponseWriter, r *http.Request, err error) {
	if err == store.ErrNotFound {
		writeProblem(w, http.StatusNotFound, "Not found", "", r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
}

// SubscriptionsHandler serves /v1/subscriptions: POST registers a webhook,
// GET lists them.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenant(r)
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		req.TenantID = tenant
		if err := validateSubscriptionRequest(&req); err != nil {
			writeProblem(w, http.StatusUnprocessableEntity, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		items, next, err := s.Store.ListSubscriptions(r.Context(), tenant, r.URL.Query().Get("cursor"), 100)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
	}
}

// SubscriptionByIDHandler serves DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), s.tenant(r), id); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) BuildInfoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}
