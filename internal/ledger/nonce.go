package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type nonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// NonceManager hands out sequential nonces per sender. All token ledgers that
// sign with the treasury key must share one manager.
type NonceManager struct {
	source nonceSource
	mu     sync.Mutex
	next   map[common.Address]uint64
}

func NewNonceManager(source nonceSource) *NonceManager {
	return &NonceManager{
		source: source,
		next:   make(map[common.Address]uint64),
	}
}

func (n *NonceManager) GetNextNonce(ctx context.Context, address common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	nonce, ok := n.next[address]
	if !ok {
		pending, err := n.source.PendingNonceAt(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to get nonce from network: %w", err)
		}
		nonce = pending
	}
	n.next[address] = nonce + 1
	return nonce, nil
}

// ResetNonce forgets the cached nonce so the next call asks the network again.
func (n *NonceManager) ResetNonce(address common.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.next, address)
}
