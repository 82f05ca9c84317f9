package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/payroll-ledger/internal/tasks"
)

type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SchedulerService enqueues a snapshot task every time the cron expression
// fires.
type SchedulerService struct {
	schedule cron.Schedule
	client   Enqueuer
	logger   *logrus.Logger
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once

	mu            sync.Mutex
	lastExecution *time.Time
}

func NewSchedulerService(cronExpr string, client Enqueuer, logger *logrus.Logger) (*SchedulerService, error) {
	if client == nil {
		return nil, fmt.Errorf("queue client is nil")
	}
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression %q: %w", cronExpr, err)
	}
	return &SchedulerService{
		schedule: schedule,
		client:   client,
		logger:   logger,
		interval: time.Minute,
		now:      time.Now,
		done:     make(chan struct{}),
	}, nil
}

func (s *SchedulerService) Start() {
	go s.run()
}

func (s *SchedulerService) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *SchedulerService) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler service started")

	for {
		select {
		case <-ticker.C:
			if err := s.checkAndEnqueue(); err != nil {
				s.logger.Errorf("Failed to check and enqueue snapshot: %v", err)
			}
		case <-s.done:
			s.logger.Info("Scheduler service stopped")
			return
		}
	}
}

// checkAndEnqueue enqueues a snapshot when the next fire time after the last
// execution has passed. Without a previous execution it looks back one day.
func (s *SchedulerService) checkAndEnqueue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var nextTime time.Time
	if s.lastExecution != nil {
		nextTime = s.schedule.Next(*s.lastExecution)
	} else {
		nextTime = s.schedule.Next(now.Add(-24 * time.Hour))
	}
	if !now.After(nextTime) {
		return nil
	}

	task, err := tasks.NewSnapshot("scheduled")
	if err != nil {
		return fmt.Errorf("failed to create snapshot task: %w", err)
	}
	ti, err := s.client.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Queue(tasks.QUEUE_NAME))
	if err != nil {
		return fmt.Errorf("failed to enqueue snapshot task: %w", err)
	}
	s.lastExecution = &now
	s.logger.WithFields(logrus.Fields{
		"task_id":  ti.ID,
		"next_run": s.schedule.Next(now),
	}).Info("Snapshot task enqueued")
	return nil
}
