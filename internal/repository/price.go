package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solatra/solatra-backend/internal/models"
)

// scannable abstracts a single database row for scanning.
type scannable interface {
	Scan(dest ...any) error
}

// rowsIter abstracts a row iterator for scanning multiple rows.
type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

func (r *PriceRepo) Record(ctx context.Context, mint string, price float64, source string, ts time.Time) (*models.PricePoint, error) {
	td := TradingDay(ts)
	row := r.pool.QueryRow(ctx,
		`INSERT INTO price_history (timestamp, mint, price, trading_day, source)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING *`,
		ts, mint, price, td, source,
	)
	return scanPricePoint(row)
}

// GetByDay returns all price points for a mint on a trading day, oldest first.
func (r *PriceRepo) GetByDay(ctx context.Context, mint, tradingDay string) ([]models.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM price_history
		 WHERE mint = $1 AND trading_day = $2
		 ORDER BY timestamp ASC`,
		mint, tradingDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPricePoints(rows)
}

// GetLatest returns the most recent price point for a mint, or nil if none.
func (r *PriceRepo) GetLatest(ctx context.Context, mint string) (*models.PricePoint, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT * FROM price_history
		 WHERE mint = $1
		 ORDER BY timestamp DESC
		 LIMIT 1`,
		mint,
	)
	return scanPricePoint(row)
}

// GetRecent returns the most recent n price points for a mint, newest first.
func (r *PriceRepo) GetRecent(ctx context.Context, mint string, n int) ([]models.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM price_history
		 WHERE mint = $1
		 ORDER BY timestamp DESC
		 LIMIT $2`,
		mint, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPricePoints(rows)
}

// GetAvailableDays returns the distinct trading days with price data, newest first.
func (r *PriceRepo) GetAvailableDays(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT trading_day FROM price_history ORDER BY trading_day DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d.Format("2006-01-02"))
	}
	return days, rows.Err()
}

func scanPricePoint(row scannable) (*models.PricePoint, error) {
	var p models.PricePoint
	var td time.Time
	err := row.Scan(&p.ID, &p.Timestamp, &p.Mint, &p.Price, &td, &p.Source, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.TradingDay = td.Format("2006-01-02")
	return &p, nil
}

func collectPricePoints(rows rowsIter) ([]models.PricePoint, error) {
	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		var td time.Time
		if err := rows.Scan(&p.ID, &p.Timestamp, &p.Mint, &p.Price, &td, &p.Source, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.TradingDay = td.Format("2006-01-02")
		out = append(out, p)
	}
	return out, rows.Err()
}
