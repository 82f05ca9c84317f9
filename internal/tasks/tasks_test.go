package tasks

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayday(t *testing.T) {
	employee := common.HexToAddress("0x627306090abaB3A6e1400e9345bC60c78a8BEf57")
	task, err := NewPayday(employee)
	require.NoError(t, err)
	assert.Equal(t, TypePayday, task.Type())

	var payload PaydayPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, employee, payload.Employee)
}

func TestResultOf(t *testing.T) {
	testCases := []struct {
		name    string
		info    *asynq.TaskInfo
		want    []byte
		wantErr error
	}{
		{name: "completed", info: &asynq.TaskInfo{State: asynq.TaskStateCompleted, Result: []byte(`{"ok":true}`)}, want: []byte(`{"ok":true}`)},
		{name: "pending", info: &asynq.TaskInfo{State: asynq.TaskStatePending}, wantErr: ErrTaskInProgress},
		{name: "retry", info: &asynq.TaskInfo{State: asynq.TaskStateRetry}, wantErr: ErrTaskInProgress},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resultOf(tc.info)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := resultOf(&asynq.TaskInfo{ID: "abc", State: asynq.TaskStateArchived, LastErr: "NOT_ACTIVE"})
	assert.ErrorContains(t, err, "NOT_ACTIVE")
}
