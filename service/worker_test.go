package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/payroll-ledger/internal/ledger"
	"github.com/vultisig/payroll-ledger/internal/payroll"
	"github.com/vultisig/payroll-ledger/internal/tasks"
	"github.com/vultisig/payroll-ledger/internal/types"
	"github.com/vultisig/payroll-ledger/service"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	oracle   = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	treasury = common.HexToAddress("0x0000000000000000000000000000000000000a03")
	usdToken = common.HexToAddress("0x000000000000000000000000000000000000c001")
)

type fakeUploader struct {
	uploaded []*types.Snapshot
	err      error
}

func (f *fakeUploader) UploadSnapshot(_ context.Context, snap *types.Snapshot) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, snap)
	return "snapshots/1.json", nil
}

func newEngine(t *testing.T) (*payroll.Engine, *ledger.MemoryLedger) {
	t.Helper()
	usd := ledger.NewMemoryLedger("USD", treasury)
	require.NoError(t, usd.Mint(treasury, big.NewInt(100000000)))
	reg := ledger.NewRegistry()
	reg.Register(usdToken, usd)
	engine, err := payroll.New(payroll.Settings{
		Owner:    owner,
		Oracle:   oracle,
		Treasury: treasury,
		USDToken: usdToken,
	}, reg)
	require.NoError(t, err)
	return engine, usd
}

func TestHandlePayday(t *testing.T) {
	ctx := context.Background()
	engine, usd := newEngine(t)
	worker, err := service.NewWorker(engine, nil, nil)
	require.NoError(t, err)

	employee := caller
	require.NoError(t, engine.Hire(ctx, owner, employee, nil, 12000000))

	task, err := tasks.NewPayday(employee)
	require.NoError(t, err)
	require.NoError(t, worker.HandlePayday(ctx, task))

	b, err := usd.BalanceOf(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), b.Int64())

	// inactive employees are not retried
	require.NoError(t, engine.Remove(ctx, owner, employee))
	err = worker.HandlePayday(ctx, task)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = worker.HandlePayday(ctx, asynq.NewTask(tasks.TypePayday, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSnapshot(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)
	require.NoError(t, engine.Hire(ctx, owner, caller, nil, 1200))

	uploader := &fakeUploader{}
	worker, err := service.NewWorker(engine, nil, uploader)
	require.NoError(t, err)

	task, err := tasks.NewSnapshot("test")
	require.NoError(t, err)
	require.NoError(t, worker.HandleSnapshot(ctx, task))
	require.Len(t, uploader.uploaded, 1)
	require.Len(t, uploader.uploaded[0].Employees, 1)
	assert.Equal(t, caller, uploader.uploaded[0].Employees[0].Address)

	uploader.err = errors.New("s3 down")
	err = worker.HandleSnapshot(ctx, task)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "upload failures are retried")

	noStorage, err := service.NewWorker(engine, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, noStorage.HandleSnapshot(ctx, task), asynq.SkipRetry)
}

func TestSnapshotTaskResult(t *testing.T) {
	b, err := json.Marshal(service.SnapshotTaskResult{Key: "snapshots/1.json", Employees: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"snapshots/1.json","employees":2}`, string(b))
}
