package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rustyeddy/tradebook/internal/runner"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/pnl"
)

type pnlRequest struct {
	Trades      []market.Trade `json:"trades"`
	SkipInvalid *bool          `json:"skip_invalid,omitempty"`
	Sort        bool           `json:"sort,omitempty"`
	Symbol      string         `json:"symbol,omitempty"`
	Strategy    string         `json:"strategy,omitempty"`
	// Record stores the run in the journal when one is configured.
	Record bool `json:"record,omitempty"`
}

type runResponse struct {
	RunID     string                  `json:"run_id"`
	Created   time.Time               `json:"created"`
	Source    string                  `json:"source"`
	Symbol    string                  `json:"symbol,omitempty"`
	Strategy  string                  `json:"strategy,omitempty"`
	Summary   pnl.Summary             `json:"summary"`
	Rejected  int                     `json:"rejected"`
	Positions map[string]pnl.Position `json:"positions,omitempty"`
	Events    []pnl.Event             `json:"events,omitempty"`
	Skipped   []pnl.Rejection         `json:"skipped,omitempty"`
}

func newRunResponse(r journal.Run) runResponse {
	return runResponse{
		RunID:     r.RunID,
		Created:   r.Created,
		Source:    r.Source,
		Symbol:    r.Symbol,
		Strategy:  r.Strategy,
		Summary:   r.Summary,
		Rejected:  r.Rejected,
		Positions: r.Positions,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "journal": "disabled"}
	if s.opts.Journal != nil {
		status["journal"] = "ok"
		if err := s.opts.Journal.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["journal"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	var req pnlRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	skip := s.opts.SkipInvalid
	if req.SkipInvalid != nil {
		skip = *req.SkipInvalid
	}

	// rejections point back at the request array even after filter and sort
	for i := range req.Trades {
		req.Trades[i].Line = i + 1
	}

	rn := &runner.Runner{
		Feed:    journal.NewSliceFeed(req.Trades),
		Metrics: s.opts.Metrics,
		Tracer:  s.opts.Tracer,
		Log:     s.opts.Log,
		Options: runner.Options{
			Source:      "api",
			Filter:      journal.Filter{Symbol: req.Symbol, Strategy: req.Strategy},
			Sort:        req.Sort,
			SkipInvalid: skip,
		},
	}
	if req.Record {
		if s.opts.Journal == nil {
			writeError(w, http.StatusServiceUnavailable, "journal not configured")
			return
		}
		rn.Journal = s.opts.Journal
	}

	out, err := rn.Run(r.Context())
	if err != nil {
		if errors.Is(err, pnl.ErrInvalidTrade) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.opts.Log.WithError(err).Error("pnl run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := newRunResponse(out.Run)
	resp.Events = out.Result.Events
	resp.Skipped = out.Result.Rejected
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not configured")
		return
	}
	runs, err := s.opts.Journal.ListRuns(r.Context())
	if err != nil {
		s.opts.Log.WithError(err).Error("list runs")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not configured")
		return
	}
	runID := chi.URLParam(r, "id")

	run, err := s.opts.Journal.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	events, err := s.opts.Journal.ListEventsByRunID(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := newRunResponse(run)
	resp.Events = events
	writeJSON(w, http.StatusOK, resp)
}
