package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solatra/solatra-backend/internal/models"
)

type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

func (r *TokenRepo) Record(ctx context.Context, c *models.TokenCandidate) (*models.TokenCandidate, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO token_candidates
		 (mint, name, symbol, risk_score, top_holder_pct, liquidity_usd, volume_24h_usd,
		  price_usd, approved, reject_reason, scan_run_id, source, bought, discovered_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (mint, scan_run_id) DO UPDATE SET
		   risk_score = EXCLUDED.risk_score,
		   top_holder_pct = EXCLUDED.top_holder_pct,
		   liquidity_usd = EXCLUDED.liquidity_usd,
		   volume_24h_usd = EXCLUDED.volume_24h_usd,
		   price_usd = EXCLUDED.price_usd,
		   approved = EXCLUDED.approved,
		   reject_reason = EXCLUDED.reject_reason
		 RETURNING *`,
		c.Mint, c.Name, c.Symbol, c.RiskScore, c.TopHolderPct, c.LiquidityUSD, c.Volume24hUSD,
		c.PriceUSD, c.Approved, c.RejectReason, c.ScanRunID, c.Source, c.Bought, c.DiscoveredAt,
	)
	return scanCandidate(row)
}

// GetLatest returns the most recently discovered candidates, newest first.
func (r *TokenRepo) GetLatest(ctx context.Context, limit int) ([]models.TokenCandidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM token_candidates
		 ORDER BY discovered_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// GetApprovedUnbought returns approved candidates the bot has not bought yet,
// oldest discovery first so earlier finds get priority.
func (r *TokenRepo) GetApprovedUnbought(ctx context.Context) ([]models.TokenCandidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM token_candidates
		 WHERE approved = true AND bought = false
		 ORDER BY discovered_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// MarkBought flags every candidate row for a mint as bought.
func (r *TokenRepo) MarkBought(ctx context.Context, mint string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE token_candidates SET bought = true WHERE mint = $1`,
		mint,
	)
	return err
}

func scanCandidate(row scannable) (*models.TokenCandidate, error) {
	var c models.TokenCandidate
	err := row.Scan(
		&c.ID, &c.Mint, &c.Name, &c.Symbol,
		&c.RiskScore, &c.TopHolderPct, &c.LiquidityUSD, &c.Volume24hUSD,
		&c.PriceUSD, &c.Approved, &c.RejectReason, &c.ScanRunID, &c.Source,
		&c.Bought, &c.DiscoveredAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCandidates(rows rowsIter) ([]models.TokenCandidate, error) {
	var out []models.TokenCandidate
	for rows.Next() {
		var c models.TokenCandidate
		if err := rows.Scan(
			&c.ID, &c.Mint, &c.Name, &c.Symbol,
			&c.RiskScore, &c.TopHolderPct, &c.LiquidityUSD, &c.Volume24hUSD,
			&c.PriceUSD, &c.Approved, &c.RejectReason, &c.ScanRunID, &c.Source,
			&c.Bought, &c.DiscoveredAt, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
