package payroll

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/contexthelper"
	"github.com/vultisig/payroll-ledger/internal/types"
)

// TokenLedger is the view of one fungible-token ledger from the treasury's
// account: Transfer and TransferFrom move funds on behalf of the treasury.
type TokenLedger interface {
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
	// TransferFrom is unused by payday and terminate, which only move funds
	// out of the treasury's own account with Transfer.
	TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// LedgerResolver maps a token address to its ledger.
type LedgerResolver interface {
	Ledger(token common.Address) (TokenLedger, error)
}

// Store persists staged change sets. Apply must be all-or-nothing.
type Store interface {
	Apply(ctx context.Context, cs *types.ChangeSet) error
}

type nopStore struct{}

func (nopStore) Apply(context.Context, *types.ChangeSet) error { return nil }

// Settings are the provisioning inputs fixed at construction.
type Settings struct {
	Owner    common.Address
	Oracle   common.Address
	Treasury common.Address
	USDToken common.Address
}

type Option func(*Engine)

func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

func WithGuard(g Guard) Option {
	return func(e *Engine) { e.guard = g }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the payroll ledger. All mutating calls are serialised and staged:
// a call builds a ChangeSet from cloned records, the Store persists it and
// only then is it swapped into memory.
type Engine struct {
	mu       sync.RWMutex
	state    types.ContractState
	registry *registry
	rates    map[common.Address]types.ExchangeRate

	ledgers LedgerResolver
	store   Store
	guard   Guard
	logger  *logrus.Logger
	now     func() time.Time
}

func New(settings Settings, ledgers LedgerResolver, opts ...Option) (*Engine, error) {
	zero := common.Address{}
	if settings.Owner == zero || settings.Oracle == zero || settings.Treasury == zero || settings.USDToken == zero {
		return nil, fmt.Errorf("owner, oracle, treasury and usd token must all be set")
	}
	if ledgers == nil {
		return nil, fmt.Errorf("ledger resolver cannot be nil")
	}
	e := &Engine{
		state: types.ContractState{
			Roles:    types.Roles{Owner: settings.Owner, Oracle: settings.Oracle},
			Treasury: settings.Treasury,
			USDToken: settings.USDToken,
		},
		registry: newRegistry(),
		rates:    make(map[common.Address]types.ExchangeRate),
		ledgers:  ledgers,
		store:    nopStore{},
		guard:    RoleGuard{},
		logger:   logrus.WithField("service", "payroll").Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Restore loads a persisted snapshot. A nil or empty snapshot means a fresh
// deployment, in which case the provisioned state is written to the store.
func (e *Engine) Restore(ctx context.Context, snap *types.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap == nil || snap.State.Owner == (common.Address{}) {
		state := e.state
		if err := e.store.Apply(ctx, &types.ChangeSet{State: &state}); err != nil {
			return fmt.Errorf("failed to persist initial state: %w", err)
		}
		e.logger.WithFields(logrus.Fields{
			"owner":    e.state.Owner.Hex(),
			"oracle":   e.state.Oracle.Hex(),
			"treasury": e.state.Treasury.Hex(),
		}).Info("payroll provisioned")
		return nil
	}

	if snap.State.Treasury != e.state.Treasury || snap.State.USDToken != e.state.USDToken {
		e.logger.WithFields(logrus.Fields{
			"stored_treasury":  snap.State.Treasury.Hex(),
			"stored_usd_token": snap.State.USDToken.Hex(),
		}).Warn("stored state differs from configuration, keeping stored values")
	}
	e.state = snap.State
	e.registry = newRegistry()
	for _, emp := range snap.Employees {
		e.registry.put(emp.Clone())
	}
	e.rates = make(map[common.Address]types.ExchangeRate, len(snap.Rates))
	for _, r := range snap.Rates {
		e.rates[r.Token] = r
	}
	e.logger.WithFields(logrus.Fields{
		"employees":  e.registry.count(),
		"rates":      len(e.rates),
		"terminated": e.state.Terminated,
	}).Info("payroll state restored")
	return nil
}

func (e *Engine) State() types.ContractState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Snapshot() *types.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &types.Snapshot{
		State:     e.state,
		Employees: e.registry.all(),
		Rates:     e.sortedRates(),
		TakenAt:   e.now(),
	}
}

func (e *Engine) authorize(caller common.Address, capability Capability, subject common.Address) error {
	return e.guard.Authorize(e.state.Roles, caller, capability, subject)
}

// mutate runs stage under the write lock and commits its change set.
func (e *Engine) mutate(ctx context.Context, stage func() (*types.ChangeSet, error), fields logrus.Fields) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Terminated {
		return types.NewPayrollError(types.ErrCodeContractTerminated, "payroll has been terminated")
	}
	cs, err := stage()
	if err != nil {
		e.logger.WithFields(fields).WithError(err).Warn("call rejected")
		return err
	}
	if err := e.commit(ctx, cs); err != nil {
		e.logger.WithFields(fields).WithError(err).Error("failed to commit")
		return err
	}
	e.logger.WithFields(fields).Info("call committed")
	return nil
}

// commit persists cs and applies it to memory. Callers hold the write lock.
func (e *Engine) commit(ctx context.Context, cs *types.ChangeSet) error {
	if cs == nil || cs.Empty() {
		return nil
	}
	if err := e.store.Apply(ctx, cs); err != nil {
		return types.WrapPayrollError(types.ErrCodeStorageFailure, err, "failed to persist change set")
	}
	e.apply(cs)
	return nil
}

func (e *Engine) apply(cs *types.ChangeSet) {
	for _, emp := range cs.Employees {
		e.registry.put(emp)
	}
	for _, r := range cs.Rates {
		e.rates[r.Token] = r
	}
	if cs.State != nil {
		e.state = *cs.State
	}
}

func (e *Engine) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, AdminOps, common.Address{}); err != nil {
			return nil, err
		}
		if newOwner == (common.Address{}) {
			return nil, types.NewPayrollError(types.ErrCodeInvalidArgument, "new owner cannot be the zero address")
		}
		state := e.state
		state.Owner = newOwner
		return &types.ChangeSet{State: &state}, nil
	}, logrus.Fields{"op": "transfer_ownership", "new_owner": newOwner.Hex()})
}

func (e *Engine) SetOracle(ctx context.Context, caller, newOracle common.Address) error {
	return e.mutate(ctx, func() (*types.ChangeSet, error) {
		if err := e.authorize(caller, AdminOps, common.Address{}); err != nil {
			return nil, err
		}
		if newOracle == (common.Address{}) {
			return nil, types.NewPayrollError(types.ErrCodeInvalidArgument, "new oracle cannot be the zero address")
		}
		state := e.state
		state.Oracle = newOracle
		return &types.ChangeSet{State: &state}, nil
	}, logrus.Fields{"op": "set_oracle", "new_oracle": newOracle.Hex()})
}

// Terminate sweeps every known token balance of the treasury to the owner and
// halts all further mutations. There is no way back: once the sweep has moved
// the funds the payroll is terminated in memory even if the store rejects the
// change, and the call reports STORAGE_FAILURE.
func (e *Engine) Terminate(ctx context.Context, caller common.Address) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger.WithFields(logrus.Fields{"op": "terminate", "caller": caller.Hex()})
	if e.state.Terminated {
		return types.NewPayrollError(types.ErrCodeContractTerminated, "payroll has been terminated")
	}
	if err := e.authorize(caller, AdminOps, common.Address{}); err != nil {
		logger.WithError(err).Warn("call rejected")
		return err
	}
	for _, token := range e.knownTokens() {
		if err := e.sweep(ctx, token, e.state.Owner); err != nil {
			logger.WithError(err).Error("treasury sweep failed")
			return err
		}
	}

	now := e.now()
	state := e.state
	state.Terminated = true
	state.TerminatedAt = &now
	cs := &types.ChangeSet{State: &state}
	if err := e.store.Apply(ctx, cs); err != nil {
		e.apply(cs)
		logger.WithError(err).Error("payroll terminated but not persisted")
		return types.WrapPayrollError(types.ErrCodeStorageFailure, err, "payroll terminated but not persisted")
	}
	e.apply(cs)
	logger.Info("payroll terminated")
	return nil
}

func (e *Engine) sweep(ctx context.Context, token, to common.Address) error {
	l, err := e.ledgers.Ledger(token)
	if err != nil {
		return types.WrapPayrollError(types.ErrCodeTransferFailed, err, "no ledger for %s", token.Hex())
	}
	balance, err := l.BalanceOf(ctx, e.state.Treasury)
	if err != nil {
		return types.WrapPayrollError(types.ErrCodeTransferFailed, err, "failed to read treasury balance of %s", token.Hex())
	}
	if balance.Sign() <= 0 {
		return nil
	}
	if err := l.Transfer(ctx, to, balance); err != nil {
		return types.WrapPayrollError(types.ErrCodeTransferFailed, err, "failed to sweep %s", token.Hex())
	}
	e.logger.WithFields(logrus.Fields{
		"token":  token.Hex(),
		"to":     to.Hex(),
		"amount": balance.String(),
	}).Info("treasury swept")
	return nil
}

// knownTokens lists the USD token, every rated token and every allowed token,
// ordered by address.
func (e *Engine) knownTokens() []common.Address {
	set := map[common.Address]struct{}{e.state.USDToken: {}}
	for t := range e.rates {
		set[t] = struct{}{}
	}
	e.registry.each(func(emp *types.Employee) {
		for _, t := range emp.AllowedTokens {
			set[t] = struct{}{}
		}
	})
	out := make([]common.Address, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sortAddresses(out)
	return out
}
