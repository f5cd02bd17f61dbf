package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vitos/funding_radar/internal/usecase"
	"go.uber.org/zap"
)

// APIServer exposes the funding-data feed consumed by dashboards.
type APIServer struct {
	router  *http.ServeMux
	server  *http.Server
	markets *usecase.MarketDataService
	logger  *zap.Logger
}

func NewAPIServer(port int, markets *usecase.MarketDataService, logger *zap.Logger) *APIServer {
	s := &APIServer{
		router:  http.NewServeMux(),
		markets: markets,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: allowCORS(s.router),
	}
	return s
}

func (s *APIServer) routes() {
	s.router.HandleFunc("GET /api/funding-data", s.handleFundingData)
	s.router.HandleFunc("GET /api/funding-history", s.handleFundingHistory)
}

func (s *APIServer) Start() error {
	s.logger.Info("Starting funding-data API server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *APIServer) handleFundingData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.markets.BuildSnapshot(r.Context())
	if err != nil {
		s.logger.Error("Failed to build funding snapshot", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to retrieve market data"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("Failed to encode snapshot", zap.Error(err))
	}
}

func (s *APIServer) handleFundingHistory(w http.ResponseWriter, r *http.Request) {
	market := r.URL.Query().Get("market")
	if market == "" {
		http.Error(w, "market parameter required", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	points, err := s.markets.MarketHistory(r.Context(), market, limit)
	if err != nil {
		s.logger.Error("Failed to list funding history", zap.Error(err))
		http.Error(w, "failed to list funding history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(points); err != nil {
		s.logger.Error("Failed to encode history", zap.Error(err))
	}
}

// allowCORS lets browser dashboards on other origins read the feed.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
