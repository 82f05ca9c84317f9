package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/contexthelper"
	"github.com/vultisig/payroll-ledger/internal/payroll"
	"github.com/vultisig/payroll-ledger/internal/tasks"
	"github.com/vultisig/payroll-ledger/internal/types"
)

type SnapshotUploader interface {
	UploadSnapshot(ctx context.Context, snap *types.Snapshot) (string, error)
}

type WorkerService struct {
	engine       *payroll.Engine
	logger       *logrus.Logger
	sdClient     statsd.ClientInterface
	blockStorage SnapshotUploader
}

// NewWorker creates a new worker service
func NewWorker(engine *payroll.Engine, sdClient statsd.ClientInterface, blockStorage SnapshotUploader) (*WorkerService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if sdClient == nil {
		sdClient = &statsd.NoOpClient{}
	}
	return &WorkerService{
		engine:       engine,
		logger:       logrus.WithField("service", "worker").Logger,
		sdClient:     sdClient,
		blockStorage: blockStorage,
	}, nil
}

type SnapshotTaskResult struct {
	Key       string `json:"key"`
	Employees int    `json:"employees"`
}

func (s *WorkerService) incCounter(name string, tags []string) {
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}
}
func (s *WorkerService) measureTime(name string, start time.Time, tags []string) {
	if err := s.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		s.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

// HandlePayday runs a payday for the employee in the payload. A payday is never
// retried: transfers may already have gone out.
func (s *WorkerService) HandlePayday(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.payday.latency", time.Now(), []string{})
	var p tasks.PaydayPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	s.incCounter("worker.payday", []string{})

	logger := s.logger.WithField("employee", p.Employee.Hex())
	logger.Info("Running payday")

	receipt, err := s.engine.Payday(ctx, p.Employee)
	if err != nil {
		code, _ := types.ErrorCodeOf(err)
		s.incCounter("worker.payday.error", []string{"code:" + string(code)})
		logger.WithError(err).Error("payday failed")
		if receipt == nil {
			return fmt.Errorf("engine.Payday failed: %v: %w", err, asynq.SkipRetry)
		}
	}

	resultBytes, mErr := json.Marshal(receipt)
	if mErr != nil {
		return fmt.Errorf("json.Marshal failed: %v: %w", mErr, asynq.SkipRetry)
	}
	if w := t.ResultWriter(); w != nil {
		if _, wErr := w.Write(resultBytes); wErr != nil {
			logger.Errorf("t.ResultWriter.Write failed: %v", wErr)
			return fmt.Errorf("t.ResultWriter.Write failed: %v: %w", wErr, asynq.SkipRetry)
		}
	}
	if err != nil {
		// executed but not persisted
		return fmt.Errorf("engine.Payday failed: %v: %w", err, asynq.SkipRetry)
	}
	logger.WithField("payday_id", receipt.ID.String()).Info("payday completed")
	return nil
}

func (s *WorkerService) HandleSnapshot(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.snapshot.latency", time.Now(), []string{})
	var p tasks.SnapshotPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	s.incCounter("worker.snapshot", []string{})
	if s.blockStorage == nil {
		return fmt.Errorf("block storage is not configured: %w", asynq.SkipRetry)
	}

	snap := s.engine.Snapshot()
	key, err := s.blockStorage.UploadSnapshot(ctx, snap)
	if err != nil {
		s.incCounter("worker.snapshot.error", []string{})
		return fmt.Errorf("blockStorage.UploadSnapshot failed: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"reason":    p.Reason,
		"key":       key,
		"employees": len(snap.Employees),
	}).Info("snapshot uploaded")

	resultBytes, err := json.Marshal(SnapshotTaskResult{Key: key, Employees: len(snap.Employees)})
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if w := t.ResultWriter(); w != nil {
		if _, err := w.Write(resultBytes); err != nil {
			return fmt.Errorf("t.ResultWriter.Write failed: %v", err)
		}
	}
	return nil
}
