package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	gcommon "github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vultisig/payroll-ledger/internal/types"
)

var retriableReasons = []string{
	"nonce too low",
	"nonce too high",
	"gas price too low",
	"replacement transaction underpriced",
	"gas limit reached",
}

func isRetriableError(reason string) bool {
	for _, r := range retriableReasons {
		if strings.Contains(reason, r) {
			return true
		}
	}
	return false
}

func classifyBroadcastError(err error, sender gcommon.Address) error {
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "insufficient funds"):
		// gas balance of the treasury, not the token balance
		return &types.TransactionError{
			Code:    types.ErrInsufficientFunds,
			Message: fmt.Sprintf("Account %s has insufficient gas", sender.Hex()),
			Err:     err,
		}
	case isRetriableError(errMsg):
		return &types.TransactionError{
			Code:    types.ErrRetriable,
			Message: errMsg,
			Err:     err,
		}
	default:
		return &types.TransactionError{
			Code:    types.ErrRPCConnectionFailed,
			Message: "Unknown RPC error",
			Err:     err,
		}
	}
}

// waitMined polls until tx is mined, dropped or the monitor times out.
func (l *ERC20Ledger) waitMined(ctx context.Context, tx *gtypes.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, l.monitorTimeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	txHash := tx.Hash()
	for {
		select {
		case <-ctx.Done():
			return &types.TransactionError{
				Code:    types.ErrTxTimeout,
				Message: fmt.Sprintf("Transaction monitoring timed out for tx: %s", txHash.Hex()),
			}

		case <-ticker.C:
			_, isPending, err := l.backend.TransactionByHash(ctx, txHash)
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					return &types.TransactionError{
						Code:    types.ErrTxDropped,
						Message: fmt.Sprintf("Transaction dropped from mempool: %s", txHash.Hex()),
					}
				}
				continue
			}
			if isPending {
				continue
			}

			receipt, err := l.backend.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue
			}
			if receipt.Status == gtypes.ReceiptStatusFailed {
				reason := l.getRevertReason(ctx, tx, receipt.BlockNumber)
				if !isRetriableError(reason) {
					return &types.TransactionError{
						Code:    types.ErrPermanentFailure,
						Message: fmt.Sprintf("Transaction permanently failed: %s", reason),
					}
				}
				return &types.TransactionError{
					Code:    types.ErrRetriable,
					Message: fmt.Sprintf("Transaction failed with retriable error: %s", reason),
				}
			}
			return nil
		}
	}
}

func (l *ERC20Ledger) getRevertReason(ctx context.Context, tx *gtypes.Transaction, blockNum *big.Int) string {
	callMsg := ethereum.CallMsg{
		From:     l.from,
		To:       tx.To(),
		Data:     tx.Data(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
	}

	_, err := l.backend.CallContract(ctx, callMsg, blockNum)
	if err != nil {
		if strings.Contains(err.Error(), "execution reverted:") {
			parts := strings.Split(err.Error(), "execution reverted:")
			if len(parts) > 1 {
				return strings.TrimSpace(parts[1])
			}
		}
		return err.Error()
	}
	return "Unknown revert reason"
}
