package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vultisig/payroll-ledger/internal/types"
)

const EMPLOYEES_TABLE = "employees"

func (p *PostgresBackend) UpsertEmployeeTx(ctx context.Context, dbTx pgx.Tx, emp types.Employee) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		address,
		active,
		yearly_salary_usd,
		allowed_tokens,
		allocations,
		last_payday,
		created_at
	) VALUES (
		@Address,
		@Active,
		@YearlySalaryUSD,
		@AllowedTokens,
		@Allocations,
		@LastPayday,
		@CreatedAt
	) ON CONFLICT (address) DO UPDATE SET
		active = EXCLUDED.active,
		yearly_salary_usd = EXCLUDED.yearly_salary_usd,
		allowed_tokens = EXCLUDED.allowed_tokens,
		allocations = EXCLUDED.allocations,
		last_payday = EXCLUDED.last_payday;`, EMPLOYEES_TABLE)

	args := pgx.NamedArgs{
		"Address":         emp.Address.Hex(),
		"Active":          emp.Active,
		"YearlySalaryUSD": numeric(emp.YearlySalaryUSD),
		"AllowedTokens":   hexAddresses(emp.AllowedTokens),
		"Allocations":     int64Allocations(emp.Allocations),
		"LastPayday":      emp.LastPayday,
		"CreatedAt":       emp.CreatedAt,
	}
	if _, err := dbTx.Exec(ctx, query, args); err != nil {
		return fmt.Errorf("failed to upsert employee %s: %w", emp.Address.Hex(), err)
	}
	return nil
}

func (p *PostgresBackend) getEmployees(ctx context.Context) ([]types.Employee, error) {
	query := fmt.Sprintf(`
		SELECT address, active, yearly_salary_usd::text, allowed_tokens, allocations, last_payday, created_at
		FROM %s
		ORDER BY seq`, EMPLOYEES_TABLE)

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []types.Employee
	for rows.Next() {
		var (
			address     string
			salary      string
			tokens      []string
			allocations []int64
			emp         types.Employee
			lastPayday  *time.Time
		)
		if err := rows.Scan(&address, &emp.Active, &salary, &tokens, &allocations, &lastPayday, &emp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		addrs, err := parseAddresses([]string{address})
		if err != nil {
			return nil, err
		}
		emp.Address = addrs[0]
		if emp.YearlySalaryUSD, err = parseAmount(salary); err != nil {
			return nil, err
		}
		if emp.AllowedTokens, err = parseAddresses(tokens); err != nil {
			return nil, err
		}
		emp.Allocations = uint64Allocations(allocations)
		if len(emp.Allocations) != len(emp.AllowedTokens) {
			return nil, fmt.Errorf("employee %s has %d tokens but %d allocations", address, len(emp.AllowedTokens), len(emp.Allocations))
		}
		emp.LastPayday = lastPayday
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}
