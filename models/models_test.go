package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskWireFormat(t *testing.T) {
	var tasks []Task
	err := json.Unmarshal([]byte(`[
		{"task": "1", "description": "Implement a linked list", "duration": "30"},
		{"task": 2, "description": "Implement a stack", "duration": 20}
	]`), &tasks)
	require.NoError(t, err)
	assert.Equal(t, []Task{
		{Number: 1, Description: "Implement a linked list", Duration: 30},
		{Number: 2, Description: "Implement a stack", Duration: 20},
	}, tasks)

	out, err := json.Marshal(tasks[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"task":"2","description":"Implement a stack","duration":"20"}`, string(out))
}

func TestNumberRejectsGarbage(t *testing.T) {
	var n Number
	assert.Error(t, json.Unmarshal([]byte(`"thirty"`), &n))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &n))
	assert.Equal(t, Number(0), n)
}

func TestTaskInProgress(t *testing.T) {
	assert.Equal(t, "Task 1 in progress", TaskInProgress(1))
	assert.Equal(t, "Task 12 in progress", TaskInProgress(12))
}

func TestSnapshotEmpty(t *testing.T) {
	assert.True(t, Snapshot{}.Empty())
	assert.False(t, Snapshot{Groups: []GroupStatus{{Group: "Team 1", Status: StatusAwaitingTasks}}}.Empty())
}
