package payroll

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/types"
)

// Hire adds identity to the roster, or reactivates a removed record with a new
// salary and token list. Only a first hire grows Count.
func (e *Engine) Hire(ctx context.Context, caller, identity common.Address, allowedTokens []common.Address, yearlySalaryUSD uint64) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, AdminOps, identity); err != nil {
			return nil, err
		}
		if identity == (common.Address{}) {
			return nil, types.NewPayrollError(types.ErrCodeInvalidArgument, "employee cannot be the zero address")
		}
		tokens := dedupeTokens(allowedTokens)
		emp, exists := e.registry.lookup(identity)
		if exists {
			if emp.Active {
				return nil, types.NewPayrollError(types.ErrCodeAlreadyExists, "employee %s is already active", identity.Hex())
			}
			emp = emp.Clone()
		} else {
			emp = types.Employee{Address: identity, CreatedAt: e.now()}
		}
		emp.Active = true
		emp.YearlySalaryUSD = yearlySalaryUSD
		emp.AllowedTokens = tokens
		emp.Allocations = make([]uint64, len(tokens))
		return &types.ChangeSet{Employees: []types.Employee{emp}}, nil
	}, logrus.Fields{"op": "hire", "employee": identity.Hex(), "salary": yearlySalaryUSD})
}

func (e *Engine) SetSalary(ctx context.Context, caller, identity common.Address, yearlySalaryUSD uint64) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, AdminOps, identity); err != nil {
			return nil, err
		}
		emp, err := e.registry.mustLookup(identity)
		if err != nil {
			return nil, err
		}
		emp = emp.Clone()
		emp.YearlySalaryUSD = yearlySalaryUSD
		return &types.ChangeSet{Employees: []types.Employee{emp}}, nil
	}, logrus.Fields{"op": "set_salary", "employee": identity.Hex(), "salary": yearlySalaryUSD})
}

// Remove deactivates identity. Removing an inactive employee is a no-op.
func (e *Engine) Remove(ctx context.Context, caller, identity common.Address) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, AdminOps, identity); err != nil {
			return nil, err
		}
		emp, err := e.registry.mustLookup(identity)
		if err != nil {
			return nil, err
		}
		if !emp.Active {
			return &types.ChangeSet{}, nil
		}
		emp = emp.Clone()
		emp.Active = false
		return &types.ChangeSet{Employees: []types.Employee{emp}}, nil
	}, logrus.Fields{"op": "remove", "employee": identity.Hex()})
}

func (e *Engine) Reactivate(ctx context.Context, caller, identity common.Address, yearlySalaryUSD uint64) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, AdminOps, identity); err != nil {
			return nil, err
		}
		emp, err := e.registry.mustLookup(identity)
		if err != nil {
			return nil, err
		}
		emp = emp.Clone()
		emp.Active = true
		emp.YearlySalaryUSD = yearlySalaryUSD
		return &types.ChangeSet{Employees: []types.Employee{emp}}, nil
	}, logrus.Fields{"op": "reactivate", "employee": identity.Hex(), "salary": yearlySalaryUSD})
}

func (e *Engine) Get(identity common.Address) (active bool, yearlySalaryUSD uint64, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emp, err := e.registry.mustLookup(identity)
	if err != nil {
		return false, 0, err
	}
	return emp.Active, emp.YearlySalaryUSD, nil
}

// Employee returns a copy of the full record for identity.
func (e *Engine) Employee(identity common.Address) (types.Employee, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emp, err := e.registry.mustLookup(identity)
	if err != nil {
		return types.Employee{}, err
	}
	return emp.Clone(), nil
}

// Count is the number of identities ever hired; it never decreases.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.count()
}

// Roster lists every record, active or not, in hiring order.
func (e *Engine) Roster() []types.Employee {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.all()
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})
}
