package contexthelper

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestCheckCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, CheckCancellation(ctx))
	cancel()
	assert.ErrorIs(t, CheckCancellation(ctx), context.Canceled)
}

func TestCaller(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)

	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	caller, ok := CallerFromContext(WithCaller(context.Background(), addr))
	assert.True(t, ok)
	assert.Equal(t, addr, caller)
}
