package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	gcommon "github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/payroll-ledger/internal/types"
)

type fakeBackend struct {
	mu          sync.Mutex
	balance     *big.Int
	nonce       uint64
	sendErr     error
	status      uint64
	sent        []*gtypes.Transaction
	nonceCalls  int
	lastCallMsg ethereum.CallMsg
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCallMsg = msg
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	if f.status == gtypes.ReceiptStatusFailed && len(f.sent) > 0 {
		return nil, errors.New("execution reverted: ERC20: transfer amount exceeds balance")
	}
	return parsed.Methods["balanceOf"].Outputs.Pack(f.balance)
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50000, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, gcommon.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceCalls++
	return f.nonce, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *gtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionByHash(context.Context, gcommon.Hash) (*gtypes.Transaction, bool, error) {
	return nil, false, nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, gcommon.Hash) (*gtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &gtypes.Receipt{Status: f.status, BlockNumber: big.NewInt(1)}, nil
}

func newTestERC20(t *testing.T, backend *fakeBackend) *ERC20Ledger {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	l, err := NewERC20Ledger(backend, nil, ERC20Config{
		Token:          gcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		ChainID:        big.NewInt(1),
		Key:            key,
		MonitorTimeout: time.Second,
		PollInterval:   time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return l
}

func TestERC20Ledger_BalanceOf(t *testing.T) {
	backend := &fakeBackend{balance: big.NewInt(100000000), status: gtypes.ReceiptStatusSuccessful}
	l := newTestERC20(t, backend)

	b, err := l.BalanceOf(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "100000000", b.String())
	require.NotNil(t, backend.lastCallMsg.To)
	assert.Equal(t, l.token, *backend.lastCallMsg.To)
}

func TestERC20Ledger_Transfer(t *testing.T) {
	backend := &fakeBackend{nonce: 7, status: gtypes.ReceiptStatusSuccessful}
	l := newTestERC20(t, backend)
	ctx := context.Background()

	require.NoError(t, l.Transfer(ctx, alice, big.NewInt(4166)))
	require.NoError(t, l.Transfer(ctx, bob, big.NewInt(1)))

	require.Len(t, backend.sent, 2)
	assert.Equal(t, uint64(7), backend.sent[0].Nonce())
	assert.Equal(t, uint64(8), backend.sent[1].Nonce())
	assert.Equal(t, 1, backend.nonceCalls, "nonces after the first come from the cache")
	assert.Equal(t, uint64(60000), backend.sent[0].Gas())

	sender, err := gtypes.Sender(gtypes.LatestSignerForChainID(big.NewInt(1)), backend.sent[0])
	require.NoError(t, err)
	assert.Equal(t, l.Sender(), sender)

	method, err := l.abi.MethodById(backend.sent[0].Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "transfer", method.Name)
	args, err := method.Inputs.Unpack(backend.sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, alice, args[0].(gcommon.Address))
	assert.Equal(t, int64(4166), args[1].(*big.Int).Int64())
}

func TestERC20Ledger_TransferReverted(t *testing.T) {
	backend := &fakeBackend{status: gtypes.ReceiptStatusFailed}
	l := newTestERC20(t, backend)

	err := l.Transfer(context.Background(), alice, big.NewInt(1))
	var txErr *types.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, types.ErrPermanentFailure, txErr.Code)
	assert.Contains(t, txErr.Message, "exceeds balance")
}

func TestERC20Ledger_BroadcastError(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("nonce too low"), status: gtypes.ReceiptStatusSuccessful}
	l := newTestERC20(t, backend)

	err := l.Transfer(context.Background(), alice, big.NewInt(1))
	var txErr *types.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, types.ErrRetriable, txErr.Code)

	// a failed broadcast drops the cached nonce
	backend.sendErr = nil
	require.NoError(t, l.Transfer(context.Background(), alice, big.NewInt(1)))
	assert.Equal(t, 2, backend.nonceCalls)
}

func TestClassifyBroadcastError(t *testing.T) {
	sender := gcommon.HexToAddress("0x1000000000000000000000000000000000000001")
	testCases := []struct {
		name string
		err  error
		code string
	}{
		{name: "gas funds", err: errors.New("insufficient funds for gas * price + value"), code: types.ErrInsufficientFunds},
		{name: "nonce too high", err: errors.New("nonce too high"), code: types.ErrRetriable},
		{name: "underpriced", err: errors.New("replacement transaction underpriced"), code: types.ErrRetriable},
		{name: "unknown", err: errors.New("connection refused"), code: types.ErrRPCConnectionFailed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyBroadcastError(tc.err, sender)
			var txErr *types.TransactionError
			require.ErrorAs(t, err, &txErr)
			assert.Equal(t, tc.code, txErr.Code)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
