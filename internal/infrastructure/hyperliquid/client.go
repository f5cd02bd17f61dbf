package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vitos/funding_radar/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	MainnetInfoURL = "https://api.hyperliquid.xyz/info"

	// Markets are displayed with a -PERP suffix to distinguish them from
	// spot listings.
	perpSuffix = "-PERP"

	hoursPerYear = 24 * 365
)

// Client reads perpetual market funding state from the Hyperliquid info
// endpoint. All reads go through a rate limiter so periodic refreshes stay
// inside the exchange's public limits.
type Client struct {
	infoURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(infoURL string, requestsPerSec float64, logger *zap.Logger) *Client {
	if infoURL == "" {
		infoURL = MainnetInfoURL
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 2
	}
	return &Client{
		infoURL: infoURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		logger:  logger,
	}
}

type assetMeta struct {
	Name string `json:"name"`
}

type universeMeta struct {
	Universe []assetMeta `json:"universe"`
}

type assetCtx struct {
	Funding      *string `json:"funding"`
	DayNtlVolume *string `json:"dayNtlVlm"`
	OpenInterest *string `json:"openInterest"`
}

// FetchMarketDetails returns one MarketEntry per perpetual market, with the
// hourly funding percentage, annualised rate and 24h notional volume.
//
// The info endpoint returns a two-element array: asset metadata and asset
// state, positionally aligned. A length mismatch between the two means the
// rates cannot be mapped to names reliably, so it is a hard error rather
// than a partial result.
func (c *Client) FetchMarketDetails(ctx context.Context) ([]domain.MarketEntry, error) {
	meta, ctxs, err := c.metaAndAssetCtxs(ctx)
	if err != nil {
		return nil, err
	}

	if len(meta.Universe) != len(ctxs) {
		return nil, fmt.Errorf("universe/asset context length mismatch: %d names vs %d states",
			len(meta.Universe), len(ctxs))
	}

	entries := make([]domain.MarketEntry, 0, len(ctxs))
	for i, asset := range meta.Universe {
		if asset.Name == "" {
			c.logger.Warn("Skipping unnamed asset in universe", zap.Int("index", i))
			continue
		}

		entry := domain.MarketEntry{Market: asset.Name + perpSuffix}

		if hourly, ok := parseDecimal(ctxs[i].Funding); ok {
			entry.HourlyPercentage = domain.Float(hourly * 100)
			entry.APR = domain.Float(hourly * hoursPerYear * 100)
		} else {
			c.logger.Warn("Unparsable funding rate", zap.String("market", asset.Name))
		}

		if vol, ok := parseDecimal(ctxs[i].DayNtlVolume); ok {
			entry.Volume24h = domain.Float(vol)
		}

		entries = append(entries, entry)
	}

	c.logger.Debug("Fetched market details", zap.Int("markets", len(entries)))
	return entries, nil
}

func (c *Client) metaAndAssetCtxs(ctx context.Context) (*universeMeta, []assetCtx, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	payload := []byte(`{"type":"metaAndAssetCtxs"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("hyperliquid request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("hyperliquid status %d: %s", resp.StatusCode, string(body))
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, nil, fmt.Errorf("decode metaAndAssetCtxs: %w", err)
	}
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("metaAndAssetCtxs: expected 2 elements, got %d", len(parts))
	}

	var meta universeMeta
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return nil, nil, fmt.Errorf("decode universe meta: %w", err)
	}

	var ctxs []assetCtx
	if err := json.Unmarshal(parts[1], &ctxs); err != nil {
		return nil, nil, fmt.Errorf("decode asset contexts: %w", err)
	}

	return &meta, ctxs, nil
}

func parseDecimal(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
