package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/vitos/funding_radar/internal/domain"
	"github.com/vitos/funding_radar/internal/usecase"
	"go.uber.org/zap"
)

// Templates
var templates *template.Template

func InitTemplates(dir string) error {
	var err error
	templates, err = template.ParseGlob(filepath.Join(dir, "*.html"))
	return err
}

type marketsResponse struct {
	Rows                    []domain.MarketEntry `json:"rows"`
	TopFundingOpportunities []domain.MarketEntry `json:"top_funding_opportunities"`
	Sort                    domain.SortConfig    `json:"sort"`
	Filter                  string               `json:"filter"`
}

type statusResponse struct {
	LastUpdated string `json:"last_updated,omitempty"`
	Error       string `json:"error,omitempty"`
	Loading     bool   `json:"loading"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := s.poller.State()

	data := map[string]interface{}{
		"Markets":   s.marketsResponse(state),
		"Status":    statusFromState(state),
		"Countdown": s.countdown.State(),
	}

	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

// handleMarkets returns the derived row list. A filter query parameter,
// when present, replaces the stored filter term before deriving.
func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("filter") {
		s.view.SetFilter(r.URL.Query().Get("filter"))
	}

	writeJSON(w, s.logger, s.marketsResponse(s.poller.State()))
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	s.view.ToggleSort(domain.ParseSortKey(req.Key))
	writeJSON(w, s.logger, s.marketsResponse(s.poller.State()))
}

// handleRefresh forces a fetch outside the poll schedule and returns the
// resulting rows.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.poller.RefreshNow(r.Context())
	writeJSON(w, s.logger, s.marketsResponse(s.poller.State()))
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, s.countdown.State())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, statusFromState(s.poller.State()))
}

func (s *Server) marketsResponse(state usecase.PollState) marketsResponse {
	resp := marketsResponse{
		Rows:   []domain.MarketEntry{},
		Sort:   s.view.SortConfig(),
		Filter: s.view.Filter(),
	}
	if state.Snapshot != nil {
		resp.Rows = s.view.Rows(state.Version, state.Snapshot.AllMarkets)
		resp.TopFundingOpportunities = state.Snapshot.TopFundingOpportunities
	}
	return resp
}

func statusFromState(state usecase.PollState) statusResponse {
	resp := statusResponse{
		Error:   state.ErrMessage,
		Loading: state.Loading,
	}
	if !state.LastUpdated.IsZero() {
		resp.LastUpdated = state.LastUpdated.UTC().Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
