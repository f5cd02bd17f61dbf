package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/funding_radar/internal/domain"
	"github.com/vitos/funding_radar/internal/usecase"
	"go.uber.org/zap"
)

// Server renders the funding dashboard and serves the JSON endpoints the
// page refreshes itself from.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	poller    *usecase.PollerService
	view      *usecase.ViewService
	countdown *usecase.CountdownService
	hub       *Hub
	logger    *zap.Logger
}

func NewServer(
	port int,
	poller *usecase.PollerService,
	view *usecase.ViewService,
	countdown *usecase.CountdownService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		poller:    poller,
		view:      view,
		countdown: countdown,
		hub:       NewHub(logger),
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}

	// Push applied snapshots and countdown ticks to connected browsers.
	poller.OnUpdate(func(state usecase.PollState) {
		s.hub.Broadcast(s.snapshotFrame(state))
	})
	countdown.OnTick(func(state domain.CountdownState) {
		s.hub.Broadcast(wsFrame{Type: "countdown", Countdown: &state})
	})

	return s
}

func (s *Server) routes() {
	// Dashboard page
	s.router.HandleFunc("GET /", s.handleDashboard)

	// Row data and UI state
	s.router.HandleFunc("GET /api/markets", s.handleMarkets)
	s.router.HandleFunc("POST /api/sort", s.handleToggleSort)
	s.router.HandleFunc("POST /api/refresh", s.handleRefresh)

	// Timer and fetch status
	s.router.HandleFunc("GET /api/countdown", s.handleCountdown)
	s.router.HandleFunc("GET /api/status", s.handleStatus)

	// Live updates
	s.router.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) Start() error {
	s.logger.Info("Starting dashboard server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}
