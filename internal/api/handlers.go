package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/speedwagon-io/xrgimon/internal/dashboard"
	"github.com/speedwagon-io/xrgimon/internal/history"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/reports"
	"github.com/speedwagon-io/xrgimon/internal/window"
)

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Fleet)
}

// handleDashboard runs one synchronous refresh. Live clients go through the
// websocket hub instead, where a newer selection supersedes an older one.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if _, ok := s.deps.Fleet.Device(deviceID); !ok {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}

	q := r.URL.Query()
	preset, err := window.ParsePreset(q.Get("preset"), q.Get("year"), q.Get("start"), q.Get("end"), s.deps.Resolver.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tw, err := s.deps.Resolver.Resolve(preset, s.deps.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, fetchErr := s.deps.Fetcher.Fetch(r.Context(), deviceID, tw)
	if fetchErr != nil {
		s.log.Warn("dashboard fetch failed",
			slog.String("device", deviceID),
			slog.String("preset", preset.String()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(fetchErr),
		)
	}

	writeJSON(w, http.StatusOK, dashboard.Build(s.deps.Cards, deviceID, preset, tw, raw, fetchErr))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	kind := chi.URLParam(r, "kind")

	tracker, ok := s.deps.Histories.Tracker(model.CompositeKey(deviceID, kind))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown device or metric kind")
		return
	}

	var (
		view history.View
		err  error
	)
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		view, err = tracker.Select(offset)
	} else {
		view, err = tracker.Current()
	}

	if errors.Is(err, history.ErrOutOfRange) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if _, ok := s.deps.Fleet.Device(deviceID); !ok {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}

	list, err := s.deps.Reports.Reports(r.Context(), deviceID)
	if err != nil {
		s.log.Error("failed to fetch reports", slog.String("device", deviceID), sl.Err(err))
		writeError(w, http.StatusBadGateway, "failed to fetch reports")
		return
	}

	writeJSON(w, http.StatusOK, reports.GroupByMonth(list, s.deps.Timestamps))
}
