package storage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/funding_radar/internal/domain"
)

// SQLiteStore keeps a rolling funding history, one row per market per
// snapshot.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS funding_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			market TEXT NOT NULL,
			hourly_percentage REAL,
			apr REAL,
			volume_24h REAL,
			taken_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_funding_history_market_time ON funding_history(market, taken_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *domain.Snapshot, takenAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO funding_history (market, hourly_percentage, apr, volume_24h, taken_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range snap.AllMarkets {
		if _, err := stmt.ExecContext(ctx,
			m.Market, nullable(m.HourlyPercentage), nullable(m.APR), nullable(m.Volume24h), takenAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListMarketHistory(ctx context.Context, market string, limit int) ([]*domain.FundingPoint, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT market, hourly_percentage, apr, volume_24h, taken_at
		 FROM funding_history WHERE market = ?
		 ORDER BY taken_at DESC LIMIT ?`, market, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*domain.FundingPoint
	for rows.Next() {
		var p domain.FundingPoint
		var hourly, apr, volume sql.NullFloat64
		if err := rows.Scan(&p.Market, &hourly, &apr, &volume, &p.TakenAt); err != nil {
			return nil, err
		}
		p.HourlyPercentage = fromNull(hourly)
		p.APR = fromNull(apr)
		p.Volume24h = fromNull(volume)
		points = append(points, &p)
	}

	return points, rows.Err()
}

// PruneBefore drops history older than the given unix timestamp.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM funding_history WHERE taken_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}
