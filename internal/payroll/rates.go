package payroll

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/types"
)

// SetRate stores rate for token, replacing any previous value. A rate of N
// means N*100 USD cents buy one unit of the token.
func (e *Engine) SetRate(ctx context.Context, caller, token common.Address, rate int64) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, OracleOps, common.Address{}); err != nil {
			return nil, err
		}
		if rate <= 0 {
			return nil, types.NewPayrollError(types.ErrCodeInvalidRate, "rate must be positive, got %d", rate)
		}
		return &types.ChangeSet{
			Rates: []types.ExchangeRate{{Token: token, Rate: uint64(rate), UpdatedAt: e.now()}},
		}, nil
	}, logrus.Fields{"op": "set_rate", "token": token.Hex(), "rate": rate})
}

func (e *Engine) GetRate(token common.Address) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rates[token]
	if !ok {
		return 0, types.NewPayrollError(types.ErrCodeNotFound, "no exchange rate for %s", token.Hex())
	}
	return r.Rate, nil
}

func (e *Engine) Rates() []types.ExchangeRate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sortedRates()
}

func (e *Engine) sortedRates() []types.ExchangeRate {
	out := make([]types.ExchangeRate, 0, len(e.rates))
	for _, r := range e.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Token.Cmp(out[j].Token) < 0
	})
	return out
}
