package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/speedwagon-io/xrgimon/internal/collector"
	"github.com/speedwagon-io/xrgimon/internal/config"
	"github.com/speedwagon-io/xrgimon/internal/display"
	"github.com/speedwagon-io/xrgimon/internal/history"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/reports"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
	"github.com/speedwagon-io/xrgimon/internal/window"
)

type ReportSource interface {
	Reports(ctx context.Context, deviceID string) ([]reports.Report, error)
}

type HistorySource interface {
	Tracker(key string) (*history.Tracker, bool)
}

type Deps struct {
	Fleet      *config.FleetConfig
	Fetcher    collector.Fetcher
	Reports    ReportSource
	Histories  HistorySource
	Resolver   *window.Resolver
	Timestamps *timestamp.Normalizer
	Cards      *display.Normalizer
	Hub        *Hub
	Now        func() time.Time
}

type Server struct {
	log      *slog.Logger
	address  string
	deps     Deps
	server   *http.Server
	checkers []HealthChecker
	mu       sync.RWMutex
}

func NewServer(log *slog.Logger, address string, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Timestamps == nil {
		deps.Timestamps = timestamp.New(deps.Resolver.Location())
	}
	if deps.Cards == nil {
		deps.Cards = display.NewNormalizer(deps.Timestamps)
	}

	return &Server{
		log:      log,
		address:  address,
		deps:     deps,
		checkers: make([]HealthChecker, 0),
	}
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, checker)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)

	r.Route("/api/devices", func(r chi.Router) {
		r.Get("/", s.handleDevices)
		r.Route("/{deviceID}", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/snapshots/{kind}", s.handleSnapshot)
			r.Get("/reports", s.handleReports)
		})
	})

	if s.deps.Hub != nil {
		r.Get("/ws", s.deps.Hub.ServeWS)
	}

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.Info("starting api server", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
