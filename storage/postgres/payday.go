package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vultisig/payroll-ledger/internal/types"
)

const PAYDAY_HISTORY_TABLE = "payday_history"

func (p *PostgresBackend) InsertPaydayTx(ctx context.Context, dbTx pgx.Tx, record types.PaydayRecord) error {
	transfersJSON, err := json.Marshal(record.Transfers)
	if err != nil {
		return fmt.Errorf("failed to marshal transfers: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, employee, monthly_salary_usd, transfers, partial, created_at)
		VALUES (@ID, @Employee, @MonthlySalaryUSD, @Transfers, @Partial, @CreatedAt)`, PAYDAY_HISTORY_TABLE)
	args := pgx.NamedArgs{
		"ID":               record.ID,
		"Employee":         record.Employee.Hex(),
		"MonthlySalaryUSD": numeric(record.MonthlySalaryUSD),
		"Transfers":        transfersJSON,
		"Partial":          record.Partial,
		"CreatedAt":        record.CreatedAt,
	}
	if _, err := dbTx.Exec(ctx, query, args); err != nil {
		return fmt.Errorf("failed to insert payday %s: %w", record.ID, err)
	}
	return nil
}

func (p *PostgresBackend) GetPayday(ctx context.Context, id uuid.UUID) (*types.PaydayRecord, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := fmt.Sprintf(`
		SELECT id, employee, monthly_salary_usd::text, transfers, partial, created_at
		FROM %s
		WHERE id = $1`, PAYDAY_HISTORY_TABLE)

	rows, err := p.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	records, err := scanPaydays(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, types.NewPayrollError(types.ErrCodeNotFound, "payday %s not found", id)
	}
	return &records[0], nil
}

func (p *PostgresBackend) GetPaydayHistory(ctx context.Context, employee common.Address, take int, skip int) ([]types.PaydayRecord, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := fmt.Sprintf(`
		SELECT id, employee, monthly_salary_usd::text, transfers, partial, created_at
		FROM %s
		WHERE employee = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, PAYDAY_HISTORY_TABLE)

	rows, err := p.pool.Query(ctx, query, employee.Hex(), take, skip)
	if err != nil {
		return nil, err
	}
	return scanPaydays(rows)
}

func scanPaydays(rows pgx.Rows) ([]types.PaydayRecord, error) {
	defer rows.Close()

	var records []types.PaydayRecord
	for rows.Next() {
		var (
			record        types.PaydayRecord
			employee      string
			monthly       string
			transfersJSON []byte
		)
		if err := rows.Scan(&record.ID, &employee, &monthly, &transfersJSON, &record.Partial, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payday: %w", err)
		}
		if !common.IsHexAddress(employee) {
			return nil, fmt.Errorf("invalid stored address %q", employee)
		}
		record.Employee = common.HexToAddress(employee)
		var err error
		if record.MonthlySalaryUSD, err = parseAmount(monthly); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(transfersJSON, &record.Transfers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transfers: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return records, nil
}
