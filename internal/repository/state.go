package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solatra/solatra-backend/internal/models"
)

type StateRepo struct {
	pool *pgxpool.Pool
}

func NewStateRepo(pool *pgxpool.Pool) *StateRepo {
	return &StateRepo{pool: pool}
}

func (r *StateRepo) GetActive(ctx context.Context) (*models.BotState, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT * FROM bot_state WHERE is_active = true ORDER BY updated_at DESC LIMIT 1`,
	)
	bs, err := scanBotState(row)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, err
	}
	return bs, nil
}

func (r *StateRepo) Save(ctx context.Context, data *models.BotState) (*models.BotState, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `UPDATE bot_state SET is_active = false WHERE is_active = true`)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO bot_state
		 (trades_executed, total_profit_sol, last_scan_run_id, is_active, updated_at)
		 VALUES ($1,$2,$3,true,NOW())
		 RETURNING *`,
		data.TradesExecuted,
		data.TotalProfitSOL,
		data.LastScanRunID,
	)
	bs, err := scanBotState(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return bs, nil
}

func (r *StateRepo) UpdateTradeStats(ctx context.Context, tradesExecuted int, totalProfitSOL float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE bot_state SET trades_executed = $1, total_profit_sol = $2, updated_at = NOW() WHERE is_active = true`,
		tradesExecuted, totalProfitSOL,
	)
	return err
}

func (r *StateRepo) UpdateLastScanRun(ctx context.Context, scanRunID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE bot_state SET last_scan_run_id = $1, updated_at = NOW() WHERE is_active = true`,
		scanRunID,
	)
	return err
}

func (r *StateRepo) UpdatePaperWallet(ctx context.Context, pw *models.PaperWallet) error {
	tokensJSON := json.RawMessage("{}")
	if len(pw.Tokens) > 0 {
		tokensJSON = pw.Tokens
	}
	tradesJSON := json.RawMessage("[]")
	if len(pw.Trades) > 0 {
		tradesJSON = pw.Trades
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE bot_state
		 SET paper_sol_balance = $1,
		     paper_tokens_json = $2,
		     paper_total_fees_sol = $3,
		     paper_trades_json = $4,
		     updated_at = NOW()
		 WHERE is_active = true`,
		pw.SOLBalance, tokensJSON, pw.TotalFeesSOL, tradesJSON,
	)
	return err
}

func (r *StateRepo) InitializePaperWallet(ctx context.Context, initialSOL float64) error {
	state, err := r.GetActive(ctx)
	if err != nil {
		return err
	}
	if state != nil && state.PaperSOLBalance != nil {
		return nil // already initialized
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE bot_state
		 SET paper_sol_balance = $1,
		     paper_initial_sol = $1,
		     paper_tokens_json = '{}'::jsonb,
		     paper_total_fees_sol = 0,
		     paper_trades_json = '[]'::jsonb,
		     paper_start_time = NOW(),
		     updated_at = NOW()
		 WHERE is_active = true`,
		initialSOL,
	)
	return err
}

func (r *StateRepo) GetPaperWallet(ctx context.Context) (*models.PaperWallet, error) {
	state, err := r.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil || state.PaperSOLBalance == nil {
		return nil, nil
	}
	pw := &models.PaperWallet{
		SOLBalance:   valOr(state.PaperSOLBalance, 0),
		Tokens:       state.PaperTokensJSON,
		TotalFeesSOL: valOr(state.PaperTotalFeesSOL, 0),
		Trades:       state.PaperTradesJSON,
		StartTime:    state.PaperStartTime,
		InitialSOL:   valOr(state.PaperInitialSOL, 0),
	}
	return pw, nil
}

// --- scan helpers ---

func scanBotState(row scannable) (*models.BotState, error) {
	var bs models.BotState
	err := row.Scan(
		&bs.ID, &bs.TradesExecuted, &bs.TotalProfitSOL, &bs.LastScanRunID,
		&bs.IsActive, &bs.CreatedAt, &bs.UpdatedAt,
		// paper wallet columns
		&bs.PaperSOLBalance, &bs.PaperTokensJSON, &bs.PaperTotalFeesSOL,
		&bs.PaperTradesJSON, &bs.PaperStartTime, &bs.PaperInitialSOL,
	)
	if err != nil {
		return nil, err
	}
	return &bs, nil
}

func valOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}
