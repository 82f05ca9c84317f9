package payroll

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/contexthelper"
	"github.com/vultisig/payroll-ledger/internal/types"
)

const monthsPerYear = 12

// Payday disburses one month of the caller's salary: each allocated token gets
// its share converted at the oracle rate, the remainder goes out in the USD
// token. Balances are checked for the whole plan before anything moves, and
// the employee record only changes once every transfer went through. When a
// ledger rejects a transfer after earlier ones went out, the partial receipt is
// returned together with TRANSFER_FAILED.
func (e *Engine) Payday(ctx context.Context, caller common.Address) (*types.PaydayReceipt, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger.WithFields(logrus.Fields{"op": "payday", "employee": caller.Hex()})
	if e.state.Terminated {
		return nil, types.NewPayrollError(types.ErrCodeContractTerminated, "payroll has been terminated")
	}
	if err := e.authorize(caller, SelfOps, caller); err != nil {
		return nil, err
	}
	emp, err := e.registry.mustLookup(caller)
	if err != nil {
		return nil, err
	}
	if !emp.Active {
		return nil, types.NewPayrollError(types.ErrCodeNotActive, "employee %s is not active", caller.Hex())
	}

	record, err := e.planPayday(emp)
	if err != nil {
		logger.WithError(err).Warn("payday rejected")
		return nil, err
	}
	if err := e.checkTreasury(ctx, record); err != nil {
		logger.WithError(err).Warn("payday rejected")
		return nil, err
	}
	if executed, err := e.executeTransfers(ctx, record); err != nil {
		logger.WithError(err).WithField("executed", executed).Error("payday transfer failed")
		if executed == 0 {
			return nil, err
		}
		return e.recordPartialPayday(ctx, record, executed, logger), err
	}

	now := e.now()
	record.CreatedAt = now
	emp = emp.Clone()
	emp.LastPayday = &now
	cs := &types.ChangeSet{Employees: []types.Employee{emp}, Payday: record}
	if err := e.store.Apply(ctx, cs); err != nil {
		// the ledger already moved the funds, so memory must reflect it even
		// though the audit row is missing
		e.apply(cs)
		logger.WithError(err).Error("payday executed but not persisted")
		return record, types.WrapPayrollError(types.ErrCodeStorageFailure, err, "payday %s executed but not persisted", record.ID)
	}
	e.apply(cs)

	logger.WithFields(logrus.Fields{
		"payday_id": record.ID.String(),
		"monthly":   record.MonthlySalaryUSD,
		"transfers": len(record.Transfers),
	}).Info("payday committed")
	return record, nil
}

// planPayday computes the transfers for one month. Integer arithmetic only;
// every division truncates.
func (e *Engine) planPayday(emp types.Employee) (*types.PaydayRecord, error) {
	monthly := emp.YearlySalaryUSD / monthsPerYear
	record := &types.PaydayRecord{
		ID:               uuid.New(),
		Employee:         emp.Address,
		MonthlySalaryUSD: monthly,
	}

	var allocatedUSD uint64
	for i, token := range emp.AllowedTokens {
		pct := emp.Allocations[i]
		if pct == 0 {
			continue
		}
		portion := percentOf(monthly, pct)
		rate, ok := e.rates[token]
		if !ok {
			return nil, types.NewPayrollError(types.ErrCodeRateNotSet, "no exchange rate for %s", token.Hex())
		}
		allocatedUSD += portion
		// portion / (rate*100) without the overflow of rate*100
		amount := portion / rate.Rate / 100
		if amount == 0 {
			continue
		}
		record.Transfers = append(record.Transfers, types.Transfer{
			Token:      token,
			To:         emp.Address,
			Amount:     amount,
			PortionUSD: portion,
			Percentage: pct,
			Rate:       rate.Rate,
		})
	}

	if residual := monthly - allocatedUSD; residual > 0 {
		record.Transfers = append(record.Transfers, types.Transfer{
			Token:      e.state.USDToken,
			To:         emp.Address,
			Amount:     residual,
			PortionUSD: residual,
			Percentage: maxPercentage - sumAllocations(emp.Allocations),
		})
	}
	return record, nil
}

// percentOf is floor(amount*pct/100) computed without overflowing uint64.
func percentOf(amount, pct uint64) uint64 {
	return amount/100*pct + amount%100*pct/100
}

func sumAllocations(allocs []uint64) uint64 {
	var sum uint64
	for _, a := range allocs {
		sum += a
	}
	return sum
}

func (e *Engine) checkTreasury(ctx context.Context, record *types.PaydayRecord) error {
	totals := record.Totals()
	tokens := make([]common.Address, 0, len(totals))
	for t := range totals {
		tokens = append(tokens, t)
	}
	sortAddresses(tokens)

	for _, token := range tokens {
		l, err := e.ledgers.Ledger(token)
		if err != nil {
			return types.WrapPayrollError(types.ErrCodeTransferFailed, err, "no ledger for %s", token.Hex())
		}
		balance, err := l.BalanceOf(ctx, e.state.Treasury)
		if err != nil {
			return types.WrapPayrollError(types.ErrCodeTransferFailed, err, "failed to read treasury balance of %s", token.Hex())
		}
		need := new(big.Int).SetUint64(totals[token])
		if balance.Cmp(need) < 0 {
			return types.NewPayrollError(types.ErrCodeTransferFailed, "treasury holds %s of %s, payday needs %s", balance, token.Hex(), need)
		}
	}
	return nil
}

// executeTransfers sends the planned transfers in order and reports how many
// went out.
func (e *Engine) executeTransfers(ctx context.Context, record *types.PaydayRecord) (int, error) {
	for i, t := range record.Transfers {
		l, err := e.ledgers.Ledger(t.Token)
		if err != nil {
			return i, types.WrapPayrollError(types.ErrCodeTransferFailed, err, "no ledger for %s", t.Token.Hex())
		}
		if err := l.Transfer(ctx, t.To, new(big.Int).SetUint64(t.Amount)); err != nil {
			return i, types.WrapPayrollError(types.ErrCodeTransferFailed, err, "transfer %d of %d (%s) rejected", i+1, len(record.Transfers), t.Token.Hex())
		}
	}
	return len(record.Transfers), nil
}

// recordPartialPayday writes the audit row of the transfers that went out
// before a ledger rejection. The employee record is left as it was, so the
// payday counts as not done.
func (e *Engine) recordPartialPayday(ctx context.Context, record *types.PaydayRecord, executed int, logger *logrus.Entry) *types.PaydayRecord {
	partial := *record
	partial.Transfers = append([]types.Transfer(nil), record.Transfers[:executed]...)
	partial.Partial = true
	partial.CreatedAt = e.now()
	if err := e.store.Apply(ctx, &types.ChangeSet{Payday: &partial}); err != nil {
		logger.WithError(err).WithField("payday_id", partial.ID.String()).Error("partial payday not persisted")
	}
	return &partial
}
