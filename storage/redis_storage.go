package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/vultisig/payroll-ledger/config"
	"github.com/vultisig/payroll-ledger/contexthelper"
	"github.com/vultisig/payroll-ledger/internal/types"
)

const paydayPending = "pending"

// ErrPaydayInFlight is returned while a payday with the same idempotency key
// has been reserved but has not produced a receipt yet.
var ErrPaydayInFlight = errors.New("payday with this idempotency key is in flight")

type RedisStorage struct {
	cfg    config.Config
	client *redis.Client
}

func NewRedisStorage(cfg config.Config) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}, nil
}

func paydayKey(employee common.Address, idempotencyKey string) string {
	return fmt.Sprintf("payday:%s:%s", employee.Hex(), idempotencyKey)
}

// ReservePayday claims idempotencyKey for employee. It returns false if the
// key was already claimed.
func (r *RedisStorage) ReservePayday(ctx context.Context, employee common.Address, idempotencyKey string, ttl time.Duration) (bool, error) {
	if contexthelper.CheckCancellation(ctx) != nil {
		return false, ctx.Err()
	}
	ok, err := r.client.SetNX(ctx, paydayKey(employee, idempotencyKey), paydayPending, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("fail to reserve payday key, err: %w", err)
	}
	return ok, nil
}

func (r *RedisStorage) SavePaydayReceipt(ctx context.Context, idempotencyKey string, receipt *types.PaydayReceipt, ttl time.Duration) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("fail to serialize payday receipt to json, err: %w", err)
	}
	return r.client.Set(ctx, paydayKey(receipt.Employee, idempotencyKey), string(receiptJSON), ttl).Err()
}

// GetPaydayReceipt returns the receipt stored under idempotencyKey, nil if the
// key is unknown, or ErrPaydayInFlight if it is reserved without a receipt.
func (r *RedisStorage) GetPaydayReceipt(ctx context.Context, employee common.Address, idempotencyKey string) (*types.PaydayReceipt, error) {
	if contexthelper.CheckCancellation(ctx) != nil {
		return nil, ctx.Err()
	}
	receiptJSON, err := r.client.Get(ctx, paydayKey(employee, idempotencyKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("fail to get payday receipt, err: %w", err)
	}
	if receiptJSON == paydayPending {
		return nil, ErrPaydayInFlight
	}
	var receipt types.PaydayReceipt
	if err := json.Unmarshal([]byte(receiptJSON), &receipt); err != nil {
		return nil, fmt.Errorf("fail to deserialize payday receipt, err: %w", err)
	}
	return &receipt, nil
}

// ReleasePayday drops a reservation so a failed payday can be retried.
func (r *RedisStorage) ReleasePayday(ctx context.Context, employee common.Address, idempotencyKey string) error {
	return r.client.Del(ctx, paydayKey(employee, idempotencyKey)).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
