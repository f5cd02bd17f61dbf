package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/funding_radar/internal/domain"
	"go.uber.org/zap"
)

type MockFundingSource struct {
	markets []domain.MarketEntry
	err     error
}

func (m *MockFundingSource) FetchMarketDetails(ctx context.Context) ([]domain.MarketEntry, error) {
	return m.markets, m.err
}

type MockSnapshotRepo struct {
	saved   []*domain.Snapshot
	takenAt []int64
	saveErr error
}

func (m *MockSnapshotRepo) SaveSnapshot(ctx context.Context, snap *domain.Snapshot, takenAt int64) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, snap)
	m.takenAt = append(m.takenAt, takenAt)
	return nil
}

func (m *MockSnapshotRepo) ListMarketHistory(ctx context.Context, market string, limit int) ([]*domain.FundingPoint, error) {
	return nil, nil
}

func TestTopOpportunities(t *testing.T) {
	markets := []domain.MarketEntry{
		{Market: "A-PERP", HourlyPercentage: domain.Float(0.001)},
		{Market: "B-PERP", HourlyPercentage: domain.Float(0.05)},
		{Market: "C-PERP", HourlyPercentage: domain.Float(-0.02)},
		{Market: "D-PERP", HourlyPercentage: nil},
		{Market: "E-PERP", HourlyPercentage: domain.Float(0)},
		{Market: "F-PERP", HourlyPercentage: domain.Float(0.01)},
	}

	top := TopOpportunities(markets, 5)

	require.Len(t, top, 3, "only strictly positive rates qualify")
	assert.Equal(t, "B-PERP", top[0].Market)
	assert.Equal(t, "F-PERP", top[1].Market)
	assert.Equal(t, "A-PERP", top[2].Market)
}

func TestTopOpportunities_CapsAtN(t *testing.T) {
	var markets []domain.MarketEntry
	for i := 0; i < 10; i++ {
		markets = append(markets, domain.MarketEntry{
			Market:           string(rune('A'+i)) + "-PERP",
			HourlyPercentage: domain.Float(float64(i+1) * 0.001),
		})
	}

	top := TopOpportunities(markets, 5)

	require.Len(t, top, 5)
	assert.Equal(t, "J-PERP", top[0].Market)
	assert.Equal(t, "F-PERP", top[4].Market)
}

func TestBuildSnapshot(t *testing.T) {
	source := &MockFundingSource{markets: []domain.MarketEntry{
		{Market: "ETH-PERP", HourlyPercentage: domain.Float(0.01)},
		{Market: "BTC-PERP", HourlyPercentage: domain.Float(-0.002)},
	}}
	repo := &MockSnapshotRepo{}

	svc := NewMarketDataService(source, repo, 5, zap.NewNop())
	fixed := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	svc.timeNow = func() time.Time { return fixed }

	snap, err := svc.BuildSnapshot(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.AllMarkets, 2)
	require.Len(t, snap.TopFundingOpportunities, 1)
	assert.Equal(t, "ETH-PERP", snap.TopFundingOpportunities[0].Market)
	require.NotNil(t, snap.LastUpdatedTimestamp)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, fixed.Unix(), repo.takenAt[0])
	assert.Equal(t, float64(fixed.Unix()), *snap.LastUpdatedTimestamp)
}

func TestBuildSnapshot_SourceErrorPropagates(t *testing.T) {
	source := &MockFundingSource{err: errors.New("upstream unavailable")}
	svc := NewMarketDataService(source, nil, 5, zap.NewNop())

	_, err := svc.BuildSnapshot(context.Background())
	assert.Error(t, err)
}

func TestBuildSnapshot_HistoryFailureIsNotFatal(t *testing.T) {
	source := &MockFundingSource{markets: []domain.MarketEntry{
		{Market: "ETH-PERP", HourlyPercentage: domain.Float(0.01)},
	}}
	repo := &MockSnapshotRepo{saveErr: errors.New("disk full")}

	svc := NewMarketDataService(source, repo, 5, zap.NewNop())

	snap, err := svc.BuildSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.AllMarkets, 1)
}
