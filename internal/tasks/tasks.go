package tasks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hibiken/asynq"
)

const (
	QUEUE_NAME   = "payroll_queue"
	TypePayday   = "payroll:payday"
	TypeSnapshot = "payroll:snapshot"
)

var ErrTaskInProgress = errors.New("task is still in progress")

type PaydayPayload struct {
	Employee common.Address `json:"employee"`
}

type SnapshotPayload struct {
	Reason string `json:"reason"`
}

func NewPayday(employee common.Address) (*asynq.Task, error) {
	payload, err := json.Marshal(PaydayPayload{Employee: employee})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePayday, payload), nil
}

func NewSnapshot(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(SnapshotPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSnapshot, payload), nil
}

// TaskInspector is satisfied by *asynq.Inspector.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// GetTaskResult returns what the handler wrote to the task result once the task
// has completed.
func GetTaskResult(inspector TaskInspector, taskID string) ([]byte, error) {
	info, err := inspector.GetTaskInfo(QUEUE_NAME, taskID)
	if err != nil {
		return nil, fmt.Errorf("inspector.GetTaskInfo failed: %w", err)
	}
	return resultOf(info)
}

func resultOf(info *asynq.TaskInfo) ([]byte, error) {
	switch info.State {
	case asynq.TaskStateCompleted:
		return info.Result, nil
	case asynq.TaskStateArchived:
		return nil, fmt.Errorf("task %s failed: %s", info.ID, info.LastErr)
	default:
		return nil, ErrTaskInProgress
	}
}
