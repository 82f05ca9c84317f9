package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vultisig/payroll-ledger/internal/types"
)

type DatabaseStorage interface {
	Close() error

	// Apply persists a staged change set in one database transaction.
	Apply(ctx context.Context, cs *types.ChangeSet) error
	LoadSnapshot(ctx context.Context) (*types.Snapshot, error)

	UpsertEmployeeTx(ctx context.Context, dbTx pgx.Tx, emp types.Employee) error
	UpsertRateTx(ctx context.Context, dbTx pgx.Tx, rate types.ExchangeRate) error
	UpsertStateTx(ctx context.Context, dbTx pgx.Tx, state types.ContractState) error
	InsertPaydayTx(ctx context.Context, dbTx pgx.Tx, record types.PaydayRecord) error

	GetPayday(ctx context.Context, id uuid.UUID) (*types.PaydayRecord, error)
	GetPaydayHistory(ctx context.Context, employee common.Address, take int, skip int) ([]types.PaydayRecord, error)

	Pool() *pgxpool.Pool
}
