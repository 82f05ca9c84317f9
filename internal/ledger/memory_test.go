package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	treasury = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob      = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func TestMemoryLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger("USD", treasury)
	require.NoError(t, l.Mint(treasury, big.NewInt(100)))

	require.NoError(t, l.Transfer(ctx, alice, big.NewInt(40)))

	b, err := l.BalanceOf(ctx, treasury)
	require.NoError(t, err)
	assert.Equal(t, int64(60), b.Int64())
	b, err = l.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(40), b.Int64())
	assert.Equal(t, int64(100), l.TotalSupply().Int64())

	err = l.Transfer(ctx, alice, big.NewInt(61))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	b, _ = l.BalanceOf(ctx, treasury)
	assert.Equal(t, int64(60), b.Int64(), "failed transfer must not move funds")

	assert.ErrorIs(t, l.Transfer(ctx, common.Address{}, big.NewInt(1)), ErrZeroRecipient)
	assert.ErrorIs(t, l.Transfer(ctx, alice, big.NewInt(-1)), ErrInvalidAmount)
}

func TestMemoryLedger_TransferFrom(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger("HT", treasury)
	require.NoError(t, l.Mint(alice, big.NewInt(50)))

	err := l.TransferFrom(ctx, alice, bob, big.NewInt(10))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.Approve(alice, treasury, big.NewInt(30)))
	require.NoError(t, l.TransferFrom(ctx, alice, bob, big.NewInt(20)))

	b, _ := l.BalanceOf(ctx, bob)
	assert.Equal(t, int64(20), b.Int64())
	b, _ = l.BalanceOf(ctx, alice)
	assert.Equal(t, int64(30), b.Int64())

	// 10 left on the allowance
	assert.ErrorIs(t, l.TransferFrom(ctx, alice, bob, big.NewInt(11)), ErrInsufficientAllowance)
	assert.NoError(t, l.TransferFrom(ctx, alice, bob, big.NewInt(10)))
}

func TestMemoryLedger_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewMemoryLedger("USD", treasury)
	_, err := l.BalanceOf(ctx, treasury)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	usd := common.HexToAddress("0xbb00000000000000000000000000000000000000")
	ht := common.HexToAddress("0xaa00000000000000000000000000000000000000")
	r.Register(usd, NewMemoryLedger("USD", treasury))
	r.Register(ht, NewMemoryLedger("HT", treasury))

	l, err := r.Ledger(usd)
	require.NoError(t, err)
	assert.Equal(t, "USD", l.(*MemoryLedger).Symbol())

	_, err = r.Ledger(alice)
	assert.Error(t, err)

	assert.Equal(t, []common.Address{ht, usd}, r.Tokens())
}
