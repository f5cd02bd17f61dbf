package domain

// MarketEntry is one perpetual market's funding snapshot. Numeric columns
// are nullable: the upstream feed occasionally omits or garbles a field,
// and a missing value must stay distinguishable from zero.
type MarketEntry struct {
	Market           string   `json:"market"`
	HourlyPercentage *float64 `json:"hourly_percentage"`
	APR              *float64 `json:"apr"`
	Volume24h        *float64 `json:"volume_24h"`
}

// Snapshot is one complete fetch result. It is replaced wholesale on every
// successful poll; there is no incremental merge.
type Snapshot struct {
	AllMarkets              []MarketEntry `json:"all_markets"`
	TopFundingOpportunities []MarketEntry `json:"top_funding_opportunities"`
	LastUpdatedTimestamp    *float64      `json:"last_updated_timestamp,omitempty"` // unix seconds
}

type SortKey string

const (
	SortByMarket    SortKey = "market"
	SortByHourlyPct SortKey = "hourly_percentage"
	SortByAPR       SortKey = "apr"
	SortByVolume24h SortKey = "volume_24h"
)

// ParseSortKey maps a request parameter to a SortKey, falling back to the
// market name column for anything unrecognised.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByHourlyPct, SortByAPR, SortByVolume24h:
		return SortKey(s)
	default:
		return SortByMarket
	}
}

type SortDirection string

const (
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

type SortConfig struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// CountdownState is the time remaining until the next hourly funding reset,
// decomposed for display. Both fields are within [0, 59].
type CountdownState struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// FundingPoint is one historical funding observation for a market.
type FundingPoint struct {
	Market           string   `json:"market"`
	HourlyPercentage *float64 `json:"hourly_percentage"`
	APR              *float64 `json:"apr"`
	Volume24h        *float64 `json:"volume_24h"`
	TakenAt          int64    `json:"taken_at"` // unix seconds
}

// Float is a convenience constructor for nullable numeric columns.
func Float(v float64) *float64 { return &v }
