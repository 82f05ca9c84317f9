package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/payroll-ledger/internal/payroll"
)

var _ payroll.LedgerResolver = &Registry{}

// Registry resolves token addresses to ledgers. Any TokenLedger can be
// registered, so memory and on-chain tokens can be mixed.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[common.Address]payroll.TokenLedger
}

func NewRegistry() *Registry {
	return &Registry{
		ledgers: make(map[common.Address]payroll.TokenLedger),
	}
}

func (r *Registry) Register(token common.Address, l payroll.TokenLedger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers[token] = l
}

func (r *Registry) Ledger(token common.Address) (payroll.TokenLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[token]
	if !ok {
		return nil, fmt.Errorf("no ledger registered for token %s", token.Hex())
	}
	return l, nil
}

func (r *Registry) Tokens() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.ledgers))
	for t := range r.ledgers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
