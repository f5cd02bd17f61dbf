package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/vitos/funding_radar/internal/domain"
	"go.uber.org/zap"
)

const DefaultTopN = 5

// MarketDataService builds funding snapshots from an upstream source and
// keeps a rolling history. The repository is optional; history writes are
// best effort and never fail a snapshot.
type MarketDataService struct {
	source  domain.FundingSource
	repo    domain.SnapshotRepository
	topN    int
	logger  *zap.Logger
	timeNow func() time.Time
}

func NewMarketDataService(source domain.FundingSource, repo domain.SnapshotRepository, topN int, logger *zap.Logger) *MarketDataService {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &MarketDataService{
		source:  source,
		repo:    repo,
		topN:    topN,
		logger:  logger,
		timeNow: time.Now,
	}
}

// BuildSnapshot fetches current market details and derives the top
// opportunities shortlist.
func (s *MarketDataService) BuildSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	markets, err := s.source.FetchMarketDetails(ctx)
	if err != nil {
		return nil, err
	}

	now := s.timeNow().Unix()
	snap := &domain.Snapshot{
		AllMarkets:              markets,
		TopFundingOpportunities: TopOpportunities(markets, s.topN),
		LastUpdatedTimestamp:    domain.Float(float64(now)),
	}

	if s.repo != nil {
		if err := s.repo.SaveSnapshot(ctx, snap, now); err != nil {
			s.logger.Error("Failed to persist funding history", zap.Error(err))
		}
	}

	s.logger.Info("Built funding snapshot",
		zap.Int("markets", len(snap.AllMarkets)),
		zap.Int("top_opportunities", len(snap.TopFundingOpportunities)))

	return snap, nil
}

func (s *MarketDataService) MarketHistory(ctx context.Context, market string, limit int) ([]*domain.FundingPoint, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListMarketHistory(ctx, market, limit)
}

// TopOpportunities keeps markets with a strictly positive hourly funding
// percentage, ordered highest first, capped at n. Ties keep their input
// order.
func TopOpportunities(markets []domain.MarketEntry, n int) []domain.MarketEntry {
	top := make([]domain.MarketEntry, 0, n)
	for _, m := range markets {
		if m.HourlyPercentage != nil && *m.HourlyPercentage > 0 {
			top = append(top, m)
		}
	}

	sort.SliceStable(top, func(i, j int) bool {
		return *top[i].HourlyPercentage > *top[j].HourlyPercentage
	})

	if len(top) > n {
		top = top[:n]
	}
	return top
}
