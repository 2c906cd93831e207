package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/seoulquant/autotrader/internal/model"
)

const (
	_queryLoadState = `SELECT user_id, configured_capital, realized_profit, invested_principal, per_position_cap, updated_at
		FROM ledger_states WHERE user_id = $1;`

	_querySaveState = `INSERT INTO ledger_states (user_id, configured_capital, realized_profit, invested_principal, per_position_cap, updated_at)
		VALUES (:user_id, :configured_capital, :realized_profit, :invested_principal, :per_position_cap, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			configured_capital = EXCLUDED.configured_capital,
			realized_profit = EXCLUDED.realized_profit,
			invested_principal = EXCLUDED.invested_principal,
			per_position_cap = EXCLUDED.per_position_cap,
			updated_at = EXCLUDED.updated_at;`
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (model.LedgerState, bool, error) {
	var state model.LedgerState
	err := s.db.GetContext(ctx, &state, _queryLoadState, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return state, false, nil
	}
	if err != nil {
		return state, false, fmt.Errorf("%w: can't load ledger state", err)
	}

	return state, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, state model.LedgerState) error {
	if _, err := s.db.NamedExecContext(ctx, _querySaveState, state); err != nil {
		return fmt.Errorf("%w: can't save ledger state", err)
	}

	return nil
}
