package payroll

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/payroll-ledger/internal/types"
)

// registry is an append-only arena of employee records. Removal only flips the
// Active flag, so indexes stay valid for the life of the engine.
type registry struct {
	records []types.Employee
	index   map[common.Address]int
}

func newRegistry() *registry {
	return &registry{
		index: make(map[common.Address]int),
	}
}

func (r *registry) lookup(addr common.Address) (types.Employee, bool) {
	i, ok := r.index[addr]
	if !ok {
		return types.Employee{}, false
	}
	return r.records[i], true
}

func (r *registry) mustLookup(addr common.Address) (types.Employee, error) {
	e, ok := r.lookup(addr)
	if !ok {
		return types.Employee{}, types.NewPayrollError(types.ErrCodeNotFound, "employee %s not found", addr.Hex())
	}
	return e, nil
}

// put inserts or replaces the record for e.Address.
func (r *registry) put(e types.Employee) {
	if i, ok := r.index[e.Address]; ok {
		r.records[i] = e
		return
	}
	r.index[e.Address] = len(r.records)
	r.records = append(r.records, e)
}

func (r *registry) count() int {
	return len(r.records)
}

func (r *registry) all() []types.Employee {
	out := make([]types.Employee, 0, len(r.records))
	for _, e := range r.records {
		out = append(out, e.Clone())
	}
	return out
}

func (r *registry) each(fn func(e *types.Employee)) {
	for i := range r.records {
		fn(&r.records[i])
	}
}

// dedupeTokens drops repeated tokens, keeping first-seen order.
func dedupeTokens(tokens []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(tokens))
	out := make([]common.Address, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
