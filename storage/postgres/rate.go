package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vultisig/payroll-ledger/internal/types"
)

const EXCHANGE_RATES_TABLE = "exchange_rates"

func (p *PostgresBackend) UpsertRateTx(ctx context.Context, dbTx pgx.Tx, rate types.ExchangeRate) error {
	query := fmt.Sprintf(`INSERT INTO %s (token, rate, updated_at)
		VALUES (@Token, @Rate, @UpdatedAt)
		ON CONFLICT (token) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at;`, EXCHANGE_RATES_TABLE)

	args := pgx.NamedArgs{
		"Token":     rate.Token.Hex(),
		"Rate":      numeric(rate.Rate),
		"UpdatedAt": rate.UpdatedAt,
	}
	if _, err := dbTx.Exec(ctx, query, args); err != nil {
		return fmt.Errorf("failed to upsert rate for %s: %w", rate.Token.Hex(), err)
	}
	return nil
}

func (p *PostgresBackend) getRates(ctx context.Context) ([]types.ExchangeRate, error) {
	query := fmt.Sprintf(`SELECT token, rate::text, updated_at FROM %s ORDER BY token`, EXCHANGE_RATES_TABLE)

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	var rates []types.ExchangeRate
	for rows.Next() {
		var token, value string
		var rate types.ExchangeRate
		if err := rows.Scan(&token, &value, &rate.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		addrs, err := parseAddresses([]string{token})
		if err != nil {
			return nil, err
		}
		rate.Token = addrs[0]
		if rate.Rate, err = parseAmount(value); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}
