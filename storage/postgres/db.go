package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/types"
	"github.com/vultisig/payroll-ledger/storage"
)

//go:embed migrations/*
var embeddedMigrations embed.FS

var _ storage.DatabaseStorage = &PostgresBackend{}

type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

func NewPostgresBackend(readonly bool, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	backend := &PostgresBackend{
		pool:   pool,
		logger: logrus.WithField("module", "postgres").Logger,
	}

	if readonly {
		return backend, nil
	}
	if err := backend.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return backend, nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()

	return nil
}

func (p *PostgresBackend) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresBackend) Migrate() error {
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(p.pool)
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose up: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Apply(ctx context.Context, cs *types.ChangeSet) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if cs == nil || cs.Empty() {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin db transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.logger.WithError(err).Error("failed to rollback transaction")
		}
	}()

	if cs.State != nil {
		if err := p.UpsertStateTx(ctx, tx, *cs.State); err != nil {
			return err
		}
	}
	for _, emp := range cs.Employees {
		if err := p.UpsertEmployeeTx(ctx, tx, emp); err != nil {
			return err
		}
	}
	for _, rate := range cs.Rates {
		if err := p.UpsertRateTx(ctx, tx, rate); err != nil {
			return err
		}
	}
	if cs.Payday != nil {
		if err := p.InsertPaydayTx(ctx, tx, *cs.Payday); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit db transaction: %w", err)
	}
	return nil
}

// LoadSnapshot reads the whole persisted state. It returns nil when the
// database has never been provisioned.
func (p *PostgresBackend) LoadSnapshot(ctx context.Context) (*types.Snapshot, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	state, err := p.getState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	employees, err := p.getEmployees(ctx)
	if err != nil {
		return nil, err
	}
	rates, err := p.getRates(ctx)
	if err != nil {
		return nil, err
	}
	return &types.Snapshot{
		State:     *state,
		Employees: employees,
		Rates:     rates,
	}, nil
}
