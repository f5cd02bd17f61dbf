package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vitos/funding_radar/internal/domain"
)

const fundingDataPath = "/api/funding-data"

// Client fetches funding snapshots from a funding-data API. Every failure
// mode is mapped to a *domain.FetchError so the dashboard can show the
// message next to the last good data.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// snapshotPayload mirrors domain.Snapshot with pointer slices so a missing
// required array is distinguishable from an empty one.
type snapshotPayload struct {
	AllMarkets              *[]domain.MarketEntry `json:"all_markets"`
	TopFundingOpportunities *[]domain.MarketEntry `json:"top_funding_opportunities"`
	LastUpdatedTimestamp    *float64              `json:"last_updated_timestamp"`
}

func (c *Client) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fundingDataPath, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchErrNetwork, "build request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchErrNetwork, "funding data request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchErrNetwork, "read funding data response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewFetchError(domain.FetchErrStatus, "funding data API returned status %d", resp.StatusCode)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewFetchError(domain.FetchErrDecode, "malformed funding data JSON: %v", err)
	}

	if payload.AllMarkets == nil || payload.TopFundingOpportunities == nil {
		return nil, domain.NewFetchError(domain.FetchErrSchema, "funding data response missing market arrays")
	}

	return &domain.Snapshot{
		AllMarkets:              *payload.AllMarkets,
		TopFundingOpportunities: *payload.TopFundingOpportunities,
		LastUpdatedTimestamp:    payload.LastUpdatedTimestamp,
	}, nil
}
