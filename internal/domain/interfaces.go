package domain

import "context"

// FundingSource provides per-market funding details from an upstream
// exchange feed.
type FundingSource interface {
	FetchMarketDetails(ctx context.Context) ([]MarketEntry, error)
}

// SnapshotSource is what the dashboard polls. Implementations return a
// *FetchError for any failure so the caller can show the message.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// SnapshotRepository defines storage operations for funding history.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot, takenAt int64) error
	ListMarketHistory(ctx context.Context, market string, limit int) ([]*FundingPoint, error)
}
