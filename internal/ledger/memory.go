package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/payroll-ledger/contexthelper"
	"github.com/vultisig/payroll-ledger/internal/payroll"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("amount must not be negative")
	ErrZeroRecipient         = errors.New("recipient is the zero address")
)

var _ payroll.TokenLedger = &MemoryLedger{}

// MemoryLedger is an in-process ERC20-style token. Transfer and TransferFrom
// act on behalf of holder, the account this view was created for.
type MemoryLedger struct {
	mu         sync.Mutex
	symbol     string
	holder     common.Address
	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewMemoryLedger(symbol string, holder common.Address) *MemoryLedger {
	return &MemoryLedger{
		symbol:     symbol,
		holder:     holder,
		supply:     new(big.Int),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (m *MemoryLedger) Symbol() string {
	return m.symbol
}

func (m *MemoryLedger) TotalSupply() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.supply)
}

func (m *MemoryLedger) Mint(to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(to, amount)
	m.supply.Add(m.supply, amount)
	return nil
}

func (m *MemoryLedger) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[common.Address]*big.Int)
	}
	m.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

func (m *MemoryLedger) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance(holder)), nil
}

func (m *MemoryLedger) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(m.holder, to, amount)
}

// TransferFrom spends the allowance from granted to holder.
func (m *MemoryLedger) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	allowance := new(big.Int)
	if a, ok := m.allowances[from][m.holder]; ok {
		allowance = a
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w", m.symbol, ErrInsufficientAllowance)
	}
	if err := m.move(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (m *MemoryLedger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	if m.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w", m.symbol, ErrInsufficientBalance)
	}
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.credit(to, amount)
	return nil
}

func (m *MemoryLedger) credit(to common.Address, amount *big.Int) {
	m.balances[to] = new(big.Int).Add(m.balance(to), amount)
}

func (m *MemoryLedger) balance(holder common.Address) *big.Int {
	if b, ok := m.balances[holder]; ok {
		return b
	}
	return new(big.Int)
}
