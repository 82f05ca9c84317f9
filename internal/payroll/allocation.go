package payroll

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/types"
)

const maxPercentage = 100

// SetAllocation replaces the caller's whole allocation. Allowed tokens that are
// not listed drop to 0%; whatever is left of 100% is paid in the USD token.
func (e *Engine) SetAllocation(ctx context.Context, caller, identity common.Address, tokens []common.Address, percentages []int64) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, SelfOps, identity); err != nil {
			return nil, err
		}
		emp, err := e.registry.mustLookup(identity)
		if err != nil {
			return nil, err
		}
		if len(tokens) != len(percentages) {
			return nil, types.NewPayrollError(types.ErrCodeLengthMismatch, "%d tokens but %d percentages", len(tokens), len(percentages))
		}

		allocations := make([]uint64, len(emp.AllowedTokens))
		seen := make(map[common.Address]struct{}, len(tokens))
		var sum int64
		for i, token := range tokens {
			pct := percentages[i]
			if pct < 0 || pct > maxPercentage {
				return nil, types.NewPayrollError(types.ErrCodeInvalidPercentage, "percentage %d for %s is out of range", pct, token.Hex())
			}
			sum += pct
			if sum > maxPercentage {
				return nil, types.NewPayrollError(types.ErrCodeInvalidPercentage, "percentages add up to more than %d", maxPercentage)
			}
			if _, dup := seen[token]; dup {
				return nil, types.NewPayrollError(types.ErrCodeDuplicateToken, "token %s listed twice", token.Hex())
			}
			seen[token] = struct{}{}
			idx := emp.TokenIndex(token)
			if idx < 0 {
				return nil, types.NewPayrollError(types.ErrCodeTokenNotAllowed, "token %s is not allowed for %s", token.Hex(), identity.Hex())
			}
			allocations[idx] = uint64(pct)
		}

		emp = emp.Clone()
		emp.Allocations = allocations
		return &types.ChangeSet{Employees: []types.Employee{emp}}, nil
	}, logrus.Fields{"op": "set_allocation", "employee": identity.Hex(), "tokens": len(tokens)})
}

// TokenCount is the number of allowed tokens of identity, allocated or not.
func (e *Engine) TokenCount(identity common.Address) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emp, err := e.registry.mustLookup(identity)
	if err != nil {
		return 0, err
	}
	return len(emp.AllowedTokens), nil
}

func (e *Engine) TokenAt(identity common.Address, index int) (common.Address, uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emp, err := e.registry.mustLookup(identity)
	if err != nil {
		return common.Address{}, 0, err
	}
	if index < 0 || index >= len(emp.AllowedTokens) {
		return common.Address{}, 0, types.NewPayrollError(types.ErrCodeIndexOutOfRange, "index %d out of range [0,%d)", index, len(emp.AllowedTokens))
	}
	return emp.AllowedTokens[index], emp.Allocations[index], nil
}

func (e *Engine) IsValidEmployeeToken(identity, token common.Address) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emp, err := e.registry.mustLookup(identity)
	if err != nil {
		return false, err
	}
	return emp.TokenIndex(token) >= 0, nil
}
