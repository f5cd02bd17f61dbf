package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/funding_radar/internal/domain"
	"github.com/vitos/funding_radar/internal/usecase"
	"go.uber.org/zap"
)

type stubSnapshotSource struct {
	snap *domain.Snapshot
	err  error
}

func (s *stubSnapshotSource) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	return s.snap, s.err
}

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		AllMarkets: []domain.MarketEntry{
			{Market: "ETH-PERP", HourlyPercentage: domain.Float(0.01), APR: domain.Float(87.6), Volume24h: domain.Float(1000000)},
			{Market: "BTC-PERP", HourlyPercentage: domain.Float(0.002), APR: domain.Float(17.52), Volume24h: domain.Float(5000000)},
			{Market: "SOL-PERP", HourlyPercentage: nil, APR: nil, Volume24h: domain.Float(300000)},
		},
		TopFundingOpportunities: []domain.MarketEntry{
			{Market: "ETH-PERP", HourlyPercentage: domain.Float(0.01), APR: domain.Float(87.6), Volume24h: domain.Float(1000000)},
		},
		LastUpdatedTimestamp: domain.Float(1748786400),
	}
}

func newTestServer(t *testing.T, source domain.SnapshotSource) (*Server, *usecase.PollerService) {
	t.Helper()

	poller := usecase.NewPollerService(source, time.Hour, zap.NewNop())
	view := usecase.NewViewService()
	countdown := usecase.NewCountdownService(time.Second, zap.NewNop())

	return NewServer(0, poller, view, countdown, zap.NewNop()), poller
}

func getJSON(t *testing.T, s *Server, method, target, body string, out interface{}) int {
	t.Helper()

	var req = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil && rec.Code == 200 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestHandleMarkets_FilterPersistsAcrossRequests(t *testing.T) {
	s, poller := newTestServer(t, &stubSnapshotSource{snap: testSnapshot()})
	poller.RefreshNow(context.Background())

	var resp marketsResponse
	code := getJSON(t, s, "GET", "/api/markets?filter=ETH", "", &resp)
	require.Equal(t, 200, code)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "ETH-PERP", resp.Rows[0].Market)
	assert.Equal(t, "ETH", resp.Filter)

	// No filter parameter: the stored term still applies.
	code = getJSON(t, s, "GET", "/api/markets", "", &resp)
	require.Equal(t, 200, code)
	require.Len(t, resp.Rows, 1)

	// Lowercase matches the same set.
	code = getJSON(t, s, "GET", "/api/markets?filter=eth", "", &resp)
	require.Equal(t, 200, code)
	require.Len(t, resp.Rows, 1)

	// Empty parameter clears the filter.
	code = getJSON(t, s, "GET", "/api/markets?filter=", "", &resp)
	require.Equal(t, 200, code)
	assert.Len(t, resp.Rows, 3)
	assert.Len(t, resp.TopFundingOpportunities, 1)
}

func TestHandleToggleSort(t *testing.T) {
	s, poller := newTestServer(t, &stubSnapshotSource{snap: testSnapshot()})
	poller.RefreshNow(context.Background())

	var resp marketsResponse
	code := getJSON(t, s, "POST", "/api/sort", `{"key":"apr"}`, &resp)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.SortByAPR, resp.Sort.Key)
	assert.Equal(t, domain.SortAscending, resp.Sort.Direction)
	// Ascending puts the null-APR row first.
	assert.Equal(t, "SOL-PERP", resp.Rows[0].Market)

	code = getJSON(t, s, "POST", "/api/sort", `{"key":"apr"}`, &resp)
	require.Equal(t, 200, code)
	assert.Equal(t, domain.SortDescending, resp.Sort.Direction)
	assert.Equal(t, "ETH-PERP", resp.Rows[0].Market)
	assert.Equal(t, "SOL-PERP", resp.Rows[2].Market)

	code = getJSON(t, s, "POST", "/api/sort", `{"key":""}`, nil)
	assert.Equal(t, 400, code)
}

func TestHandleStatus_FetchFailureKeepsRows(t *testing.T) {
	source := &stubSnapshotSource{snap: testSnapshot()}
	s, poller := newTestServer(t, source)
	poller.RefreshNow(context.Background())

	source.snap = nil
	source.err = domain.NewFetchError(domain.FetchErrStatus, "funding data API returned status 500")
	poller.RefreshNow(context.Background())

	var status statusResponse
	code := getJSON(t, s, "GET", "/api/status", "", &status)
	require.Equal(t, 200, code)
	assert.Equal(t, "funding data API returned status 500", status.Error)
	assert.False(t, status.Loading)
	assert.NotEmpty(t, status.LastUpdated)

	var resp marketsResponse
	code = getJSON(t, s, "GET", "/api/markets", "", &resp)
	require.Equal(t, 200, code)
	assert.Len(t, resp.Rows, 3, "previously displayed rows survive a failed fetch")
}

func TestHandleStatus_NoSnapshotYet(t *testing.T) {
	s, _ := newTestServer(t, &stubSnapshotSource{snap: testSnapshot()})

	var resp marketsResponse
	code := getJSON(t, s, "GET", "/api/markets", "", &resp)
	require.Equal(t, 200, code)
	assert.Empty(t, resp.Rows)
}

func TestHandleCountdown(t *testing.T) {
	s, _ := newTestServer(t, &stubSnapshotSource{snap: testSnapshot()})

	var state domain.CountdownState
	code := getJSON(t, s, "GET", "/api/countdown", "", &state)
	require.Equal(t, 200, code)
	assert.GreaterOrEqual(t, state.Minutes, 0)
	assert.LessOrEqual(t, state.Minutes, 59)
	assert.GreaterOrEqual(t, state.Seconds, 0)
	assert.LessOrEqual(t, state.Seconds, 59)
}

func TestHandleDashboard_RendersPage(t *testing.T) {
	require.NoError(t, InitTemplates("templates"))

	s, poller := newTestServer(t, &stubSnapshotSource{snap: testSnapshot()})
	poller.RefreshNow(context.Background())

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Funding Radar")
	assert.Contains(t, rec.Body.String(), "Top Funding Opportunities")
}

func TestHandleRefresh(t *testing.T) {
	s, _ := newTestServer(t, &stubSnapshotSource{snap: testSnapshot()})

	var resp marketsResponse
	code := getJSON(t, s, "POST", "/api/refresh", "", &resp)
	require.Equal(t, 200, code)
	assert.Len(t, resp.Rows, 3)
}
