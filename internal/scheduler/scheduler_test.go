package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/payroll-ledger/internal/tasks"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: tasks.QUEUE_NAME}, nil
}

func TestCheckAndEnqueue(t *testing.T) {
	client := &fakeEnqueuer{}
	s, err := NewSchedulerService("0 0 * * *", client, logrus.New())
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	// first check looks back a day, so midnight has passed
	require.NoError(t, s.checkAndEnqueue())
	require.Len(t, client.tasks, 1)
	assert.Equal(t, tasks.TypeSnapshot, client.tasks[0].Type())

	// nothing until the next midnight
	now = now.Add(6 * time.Hour)
	require.NoError(t, s.checkAndEnqueue())
	assert.Len(t, client.tasks, 1)

	now = time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)
	require.NoError(t, s.checkAndEnqueue())
	assert.Len(t, client.tasks, 2)
}

func TestCheckAndEnqueue_EnqueueFailureRetriesNextTick(t *testing.T) {
	client := &fakeEnqueuer{err: errors.New("redis down")}
	s, err := NewSchedulerService("@hourly", client, logrus.New())
	require.NoError(t, err)

	assert.Error(t, s.checkAndEnqueue())
	assert.Nil(t, s.lastExecution)

	client.err = nil
	require.NoError(t, s.checkAndEnqueue())
	assert.NotNil(t, s.lastExecution)
}

func TestNewSchedulerService(t *testing.T) {
	_, err := NewSchedulerService("not a cron", &fakeEnqueuer{}, logrus.New())
	assert.Error(t, err)
	_, err = NewSchedulerService("0 0 * * *", nil, logrus.New())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := NewSchedulerService("0 0 * * *", &fakeEnqueuer{}, logrus.New())
	require.NoError(t, err)
	s.Start()
	s.Stop()
	s.Stop()
}
