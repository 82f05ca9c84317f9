package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vultisig/payroll-ledger/internal/types"
)

const CONTRACT_STATE_TABLE = "contract_state"

func (p *PostgresBackend) UpsertStateTx(ctx context.Context, dbTx pgx.Tx, state types.ContractState) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, owner, oracle, treasury, usd_token, terminated, terminated_at, updated_at)
		VALUES (1, @Owner, @Oracle, @Treasury, @USDToken, @Terminated, @TerminatedAt, NOW())
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			oracle = EXCLUDED.oracle,
			treasury = EXCLUDED.treasury,
			usd_token = EXCLUDED.usd_token,
			terminated = EXCLUDED.terminated,
			terminated_at = EXCLUDED.terminated_at,
			updated_at = NOW();`, CONTRACT_STATE_TABLE)

	args := pgx.NamedArgs{
		"Owner":        state.Owner.Hex(),
		"Oracle":       state.Oracle.Hex(),
		"Treasury":     state.Treasury.Hex(),
		"USDToken":     state.USDToken.Hex(),
		"Terminated":   state.Terminated,
		"TerminatedAt": state.TerminatedAt,
	}
	if _, err := dbTx.Exec(ctx, query, args); err != nil {
		return fmt.Errorf("failed to upsert contract state: %w", err)
	}
	return nil
}

func (p *PostgresBackend) getState(ctx context.Context) (*types.ContractState, error) {
	query := fmt.Sprintf(`SELECT owner, oracle, treasury, usd_token, terminated, terminated_at FROM %s WHERE id = 1`, CONTRACT_STATE_TABLE)

	var raw [4]string
	var state types.ContractState
	err := p.pool.QueryRow(ctx, query).Scan(&raw[0], &raw[1], &raw[2], &raw[3], &state.Terminated, &state.TerminatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contract state: %w", err)
	}
	addrs, err := parseAddresses(raw[:])
	if err != nil {
		return nil, err
	}
	state.Owner, state.Oracle, state.Treasury, state.USDToken = addrs[0], addrs[1], addrs[2], addrs[3]
	return &state, nil
}
