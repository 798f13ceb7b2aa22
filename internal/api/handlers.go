package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ridepool/internal/dataset"
	"ridepool/internal/model"
	"ridepool/internal/store"
)

func parseLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

type createRequestSetBody struct {
	Name    string             `json:"name"`
	Records []model.TripRecord `json:"records"`
}

// RequestSetsHandler handles POST and GET /v1/requestsets.
func (s *Server) RequestSetsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body createRequestSetBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON: "+err.Error(), r.URL.Path)
			return
		}
		if err := validateRecords(body.Records); err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), r.URL.Path)
			return
		}
		kept, dropped := dataset.Filter(body.Records, s.Config.Solver.SpeedKph)
		if len(kept) == 0 {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "all records rejected by the ingest filters", r.URL.Path)
			return
		}
		set := model.RequestSet{Name: body.Name, Records: kept, Dropped: dropped}
		id, err := s.Store.SaveRequestSet(r.Context(), set)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
			return
		}
		set.ID = id
		writeJSON(w, http.StatusCreated, set.Meta())
	case http.MethodGet:
		metas, err := s.Store.ListRequestSets(r.Context(), parseLimit(r))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requestSets": metas})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RequestSetByIDHandler handles GET /v1/requestsets/{id}.
func (s *Server) RequestSetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/requestsets/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	set, err := s.Store.GetRequestSet(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "request set "+id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// SolveHandler handles POST /v1/solve: it validates the overrides, creates
// the run record, and hands the solve to the background runner.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON: "+err.Error(), r.URL.Path)
		return
	}
	if body.RequestSetID == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "requestSetId required", r.URL.Path)
		return
	}
	if err := validateSolveParams(body.Params); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), r.URL.Path)
		return
	}
	set, err := s.Store.GetRequestSet(r.Context(), body.RequestSetID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "request set "+body.RequestSetID, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
		return
	}

	cfg := s.Config
	if body.Params != nil {
		cfg.Apply(*body.Params)
	}
	params, err := cfg.Params()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), r.URL.Path)
		return
	}

	run := model.Run{
		RequestSetID: set.ID,
		Status:       model.RunRunning,
		Params:       cfg.WireParams(),
	}
	id, err := s.Store.CreateRun(r.Context(), run)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
		return
	}
	run.ID = id
	s.Runner.Start(run, cfg, params, set.Records)
	writeJSON(w, http.StatusAccepted, map[string]any{"runId": id, "status": run.Status})
}

// RunsIndexHandler handles GET /v1/runs.
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	runs, err := s.Store.ListRuns(r.Context(), parseLimit(r))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
		return
	}
	// listing view stays light: strip solutions
	for i := range runs {
		runs[i].Solution = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// RunByIDHandler handles /v1/runs/{id}, /v1/runs/{id}/cancel and
// /v1/runs/{id}/events/stream.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}

	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		s.streamRunEvents(w, r, id)
		return
	}
	if len(parts) > 1 && parts[1] == "cancel" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.Runner.Cancel(id) {
			writeProblem(w, http.StatusConflict, "Conflict", "run is not active", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"runId": id, "cancelling": true})
		return
	}
	if len(parts) > 1 && parts[1] != "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "run "+id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Internal", "streaming unsupported", r.URL.Path)
		return
	}
	if _, err := s.Store.GetRun(r.Context(), id); errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "run "+id, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// subscribe
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	// initial heartbeat
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()
	// stream loop
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
			if evt.Type == "run.done" || evt.Type == "run.failed" {
				return
			}
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// HealthHandler reports process liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler reports readiness: the store must answer.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.ListRequestSets(r.Context(), 1); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
