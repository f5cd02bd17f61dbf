package usecase

import (
	"sort"
	"strings"
	"sync"

	"github.com/vitos/funding_radar/internal/domain"
)

// ViewService holds the user's filter term and sort configuration and
// derives the displayed row list from the latest snapshot. Both settings
// persist across fetches; the derived rows are always a pure function of
// (snapshot, filter term, sort config).
type ViewService struct {
	mu     sync.Mutex
	filter string
	sort   domain.SortConfig

	memoKey  memoKey
	memoRows []domain.MarketEntry
}

type memoKey struct {
	version uint64
	filter  string
	sort    domain.SortConfig
}

func NewViewService() *ViewService {
	return &ViewService{
		sort: domain.SortConfig{Key: domain.SortByMarket, Direction: domain.SortAscending},
	}
}

func (v *ViewService) SetFilter(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = term
}

func (v *ViewService) Filter() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// ToggleSort flips the direction when the key is already active and resets
// to ascending on a new key. Returns the resulting configuration.
func (v *ViewService) ToggleSort(key domain.SortKey) domain.SortConfig {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sort.Key == key {
		if v.sort.Direction == domain.SortAscending {
			v.sort.Direction = domain.SortDescending
		} else {
			v.sort.Direction = domain.SortAscending
		}
	} else {
		v.sort = domain.SortConfig{Key: key, Direction: domain.SortAscending}
	}
	return v.sort
}

func (v *ViewService) SortConfig() domain.SortConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

// Rows derives the displayed rows for the given snapshot version, reusing
// the previous result while (version, filter, sort) is unchanged. The
// memoization is a recomputation saver only; Derive itself stays pure.
func (v *ViewService) Rows(version uint64, markets []domain.MarketEntry) []domain.MarketEntry {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := memoKey{version: version, filter: v.filter, sort: v.sort}
	if key == v.memoKey && v.memoRows != nil {
		return v.memoRows
	}

	v.memoKey = key
	v.memoRows = Derive(markets, v.filter, v.sort)
	return v.memoRows
}

// Derive filters by case-insensitive substring match on the market name
// (an empty term matches everything) and stable-sorts by the configured
// key. A null value for the sort key is treated as smaller than any
// non-null value, so nulls lead when ascending and trail when descending.
func Derive(markets []domain.MarketEntry, filterTerm string, cfg domain.SortConfig) []domain.MarketEntry {
	term := strings.ToLower(filterTerm)

	rows := make([]domain.MarketEntry, 0, len(markets))
	for _, m := range markets {
		if term == "" || strings.Contains(strings.ToLower(m.Market), term) {
			rows = append(rows, m)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := compareEntries(rows[i], rows[j], cfg.Key)
		if cfg.Direction == domain.SortDescending {
			return c > 0
		}
		return c < 0
	})

	return rows
}

// compareEntries orders two entries by the given key with nulls smallest.
// String comparison is case-insensitive.
func compareEntries(a, b domain.MarketEntry, key domain.SortKey) int {
	if key == domain.SortByMarket {
		return strings.Compare(strings.ToLower(a.Market), strings.ToLower(b.Market))
	}

	av := sortValue(a, key)
	bv := sortValue(b, key)

	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		return -1
	case bv == nil:
		return 1
	case *av < *bv:
		return -1
	case *av > *bv:
		return 1
	default:
		return 0
	}
}

func sortValue(m domain.MarketEntry, key domain.SortKey) *float64 {
	switch key {
	case domain.SortByHourlyPct:
		return m.HourlyPercentage
	case domain.SortByAPR:
		return m.APR
	case domain.SortByVolume24h:
		return m.Volume24h
	default:
		return nil
	}
}
