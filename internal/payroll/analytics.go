package payroll

import (
	"context"
	"math/big"

	"github.com/vultisig/payroll-ledger/internal/types"
)

const daysPerYear = 365

// BurnRate is the monthly salary obligation of all active employees, rounded
// half up.
func (e *Engine) BurnRate() (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return toUint64(e.burnRate(), "burn rate")
}

func (e *Engine) burnRate() *big.Int {
	total := new(big.Int)
	e.registry.each(func(emp *types.Employee) {
		if emp.Active {
			total.Add(total, new(big.Int).SetUint64(emp.YearlySalaryUSD))
		}
	})
	// (total + 6) / 12
	total.Add(total, big.NewInt(monthsPerYear/2))
	return total.Quo(total, big.NewInt(monthsPerYear))
}

// Runway is how many days the treasury's USD balance lasts at the current burn
// rate: floor(balance / burnRate * 365 / 12), computed exactly.
func (e *Engine) Runway(ctx context.Context) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	burn := e.burnRate()
	if burn.Sign() == 0 {
		return 0, types.NewPayrollError(types.ErrCodeDivisionByZero, "burn rate is zero, no active employees")
	}
	l, err := e.ledgers.Ledger(e.state.USDToken)
	if err != nil {
		return 0, types.WrapPayrollError(types.ErrCodeNotFound, err, "no ledger for usd token")
	}
	balance, err := l.BalanceOf(ctx, e.state.Treasury)
	if err != nil {
		return 0, err
	}

	num := new(big.Int).Mul(balance, big.NewInt(daysPerYear))
	den := new(big.Int).Mul(burn, big.NewInt(monthsPerYear))
	return toUint64(num.Quo(num, den), "runway")
}

func toUint64(v *big.Int, what string) (uint64, error) {
	if !v.IsUint64() {
		return 0, types.NewPayrollError(types.ErrCodeOverflow, "%s %s does not fit in 64 bits", what, v)
	}
	return v.Uint64(), nil
}

// TreasuryBalance reads the treasury's balance of the USD token.
func (e *Engine) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	e.mu.RLock()
	token, treasury := e.state.USDToken, e.state.Treasury
	e.mu.RUnlock()

	l, err := e.ledgers.Ledger(token)
	if err != nil {
		return nil, types.WrapPayrollError(types.ErrCodeNotFound, err, "no ledger for usd token")
	}
	return l.BalanceOf(ctx, treasury)
}
