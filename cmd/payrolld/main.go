package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/api"
	"github.com/vultisig/payroll-ledger/config"
	"github.com/vultisig/payroll-ledger/internal/ledger"
	"github.com/vultisig/payroll-ledger/internal/payroll"
	"github.com/vultisig/payroll-ledger/internal/scheduler"
	"github.com/vultisig/payroll-ledger/internal/tasks"
	"github.com/vultisig/payroll-ledger/service"
	"github.com/vultisig/payroll-ledger/storage"
	"github.com/vultisig/payroll-ledger/storage/postgres"
)

func main() {
	cfg, err := config.ReadConfig("config")
	if err != nil {
		panic(err)
	}
	logger := logrus.StandardLogger()
	if cfg.Server.Mode == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	sdClient, err := statsd.New(cfg.Datadog.Host + ":" + cfg.Datadog.Port)
	if err != nil {
		panic(err)
	}

	settings, err := payrollSettings(cfg)
	if err != nil {
		logger.Fatalf("invalid payroll settings: %v", err)
	}
	ledgers, treasury, err := buildLedgers(cfg, settings.Treasury, logger)
	if err != nil {
		logger.Fatalf("failed to set up token ledgers: %v", err)
	}
	settings.Treasury = treasury

	opts := []payroll.Option{payroll.WithLogger(logger)}
	var history api.PaydayHistory
	var db storage.DatabaseStorage
	if cfg.Database.DSN != "" {
		backend, err := postgres.NewPostgresBackend(false, cfg.Database.DSN)
		if err != nil {
			logger.Fatalf("failed to connect to database: %v", err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Errorf("fail to close database, err: %v", err)
			}
		}()
		db = backend
		history = backend
		opts = append(opts, payroll.WithStore(backend))
	} else {
		logger.Warn("database.dsn is empty, payroll state lives in memory only")
	}

	engine, err := payroll.New(settings, ledgers, opts...)
	if err != nil {
		logger.Fatalf("failed to create payroll engine: %v", err)
	}
	ctx := context.Background()
	if db != nil {
		snap, err := db.LoadSnapshot(ctx)
		if err != nil {
			logger.Fatalf("failed to load payroll state: %v", err)
		}
		if err := engine.Restore(ctx, snap); err != nil {
			logger.Fatalf("failed to restore payroll state: %v", err)
		}
	}

	var idempotency api.IdempotencyStore
	redisStorage, err := storage.NewRedisStorage(*cfg)
	if err != nil {
		logger.Warnf("redis is not reachable, idempotency keys are disabled: %v", err)
	} else {
		defer func() {
			if err := redisStorage.Close(); err != nil {
				logger.Errorf("fail to close redis, err: %v", err)
			}
		}()
		idempotency = redisStorage
	}

	var uploader service.SnapshotUploader
	if cfg.BlockStorage.Bucket != "" {
		blockStorage, err := storage.NewBlockStorage(*cfg)
		if err != nil {
			logger.Fatalf("failed to set up block storage: %v", err)
		}
		uploader = blockStorage
	}

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := asynq.NewClient(redisOptions)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Errorf("fail to close asynq client, err: %v", err)
		}
	}()
	inspector := asynq.NewInspector(redisOptions)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Errorf("fail to close asynq inspector, err: %v", err)
		}
	}()

	// the engine is the only writer of payroll state, so tasks run in this
	// process instead of a separate worker binary
	workerService, err := service.NewWorker(engine, sdClient, uploader)
	if err != nil {
		logger.Fatalf("failed to create worker: %v", err)
	}
	srv := asynq.NewServer(
		redisOptions,
		asynq.Config{
			Logger:      logger,
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				tasks.QUEUE_NAME: 10,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePayday, workerService.HandlePayday)
	mux.HandleFunc(tasks.TypeSnapshot, workerService.HandleSnapshot)
	if err := srv.Start(mux); err != nil {
		logger.Fatalf("could not run task server: %v", err)
	}

	if uploader != nil {
		schedulerService, err := scheduler.NewSchedulerService(cfg.Scheduler.SnapshotCron, client, logger)
		if err != nil {
			logger.Fatalf("failed to create scheduler: %v", err)
		}
		schedulerService.Start()
		defer schedulerService.Stop()
	}

	authService := service.NewAuthService(cfg.Server.JWTSecret)
	server := api.NewServer(cfg.Server.Port, engine, authService, idempotency, history, client, inspector, sdClient)

	go func() {
		if err := server.StartServer(); err != nil {
			logger.Errorf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	srv.Shutdown()
}

func payrollSettings(cfg *config.Config) (payroll.Settings, error) {
	var settings payroll.Settings
	for name, raw := range map[string]string{
		"payroll.owner":     cfg.Payroll.Owner,
		"payroll.oracle":    cfg.Payroll.Oracle,
		"payroll.usd_token": cfg.Payroll.USDToken,
	} {
		if !common.IsHexAddress(raw) {
			return settings, fmt.Errorf("%s %q is not an address", name, raw)
		}
	}
	settings.Owner = common.HexToAddress(cfg.Payroll.Owner)
	settings.Oracle = common.HexToAddress(cfg.Payroll.Oracle)
	settings.USDToken = common.HexToAddress(cfg.Payroll.USDToken)
	if cfg.Payroll.Treasury != "" {
		if !common.IsHexAddress(cfg.Payroll.Treasury) {
			return settings, fmt.Errorf("payroll.treasury %q is not an address", cfg.Payroll.Treasury)
		}
		settings.Treasury = common.HexToAddress(cfg.Payroll.Treasury)
	}
	return settings, nil
}

// buildLedgers registers one token ledger per configured token and returns
// the treasury account the ledgers transfer from.
func buildLedgers(cfg *config.Config, treasury common.Address, logger *logrus.Logger) (*ledger.Registry, common.Address, error) {
	registry := ledger.NewRegistry()
	switch cfg.Ledger.Mode {
	case config.LedgerModeEVM:
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Ledger.TreasuryKey, "0x"))
		if err != nil {
			return nil, treasury, fmt.Errorf("invalid treasury key: %w", err)
		}
		sender := crypto.PubkeyToAddress(key.PublicKey)
		if treasury != (common.Address{}) && treasury != sender {
			return nil, treasury, fmt.Errorf("payroll.treasury %s does not match the treasury key %s", treasury.Hex(), sender.Hex())
		}
		dialCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client, err := ethclient.DialContext(dialCtx, cfg.Ledger.RPC)
		if err != nil {
			return nil, treasury, fmt.Errorf("failed to dial rpc: %w", err)
		}
		nonces := ledger.NewNonceManager(client)
		for _, tc := range cfg.Ledger.Tokens {
			if !common.IsHexAddress(tc.Address) {
				return nil, treasury, fmt.Errorf("token %q is not an address", tc.Address)
			}
			l, err := ledger.NewERC20Ledger(client, nonces, ledger.ERC20Config{
				Token:   common.HexToAddress(tc.Address),
				ChainID: big.NewInt(cfg.Ledger.ChainID),
				Key:     key,
			}, logger)
			if err != nil {
				return nil, treasury, err
			}
			registry.Register(common.HexToAddress(tc.Address), l)
		}
		return registry, sender, nil
	default:
		if treasury == (common.Address{}) {
			return nil, treasury, fmt.Errorf("payroll.treasury is required in %s mode", config.LedgerModeMemory)
		}
		for _, tc := range cfg.Ledger.Tokens {
			if !common.IsHexAddress(tc.Address) {
				return nil, treasury, fmt.Errorf("token %q is not an address", tc.Address)
			}
			l := ledger.NewMemoryLedger(tc.Symbol, treasury)
			if tc.TreasuryBalance != "" {
				balance, ok := new(big.Int).SetString(tc.TreasuryBalance, 10)
				if !ok {
					return nil, treasury, fmt.Errorf("token %s has invalid treasury_balance %q", tc.Symbol, tc.TreasuryBalance)
				}
				if err := l.Mint(treasury, balance); err != nil {
					return nil, treasury, err
				}
			}
			registry.Register(common.HexToAddress(tc.Address), l)
			logger.WithFields(logrus.Fields{
				"token":   tc.Address,
				"symbol":  tc.Symbol,
				"balance": tc.TreasuryBalance,
			}).Info("memory ledger ready")
		}
		return registry, treasury, nil
	}
}
