package protocol

import (
	"encoding/json"
	"testing"

	"github.com/Raytar/labhelp/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	check := func(name, want string) {
		t.Helper()
		assert.Equal(t, want, Slug(name), "Slug(%q)", name)
	}
	check("Team 3", "team_3")
	check("Alice", "alice")
	check("Lab Group  A", "lab_group__a")
	check(" Team 1", "_team_1")
	check("team_1", "team_1")
}

func TestTopics(t *testing.T) {
	topics := NewTopics("")
	assert.Equal(t, DefaultPrefix+"/tasks", topics.Tasks())
	assert.Equal(t, DefaultPrefix+"/tasks/late/team_1", topics.TasksLate("Team 1"))
	assert.Equal(t, DefaultPrefix+"/queue_number/team_3", topics.QueueNumber("Team 3"))
	assert.Equal(t, DefaultPrefix+"/ta/alice", topics.TA("Alice"))
	assert.Equal(t, DefaultPrefix+"/ta_ready/response/all", topics.TAReadyAll())
	assert.Equal(t, DefaultPrefix+"/ta_ready/response/team_2", topics.TAReady("Team 2"))
	assert.Equal(t, DefaultPrefix+"/request/#", topics.All("request"))

	custom := NewTopics("lab/")
	assert.Equal(t, "lab/progress/team_1", custom.Progress("Team 1"))
}

func TestEncodeDecode(t *testing.T) {
	payload, err := Encode(RequestHelp, "team_3", models.HelpRequest{Group: "Team 3", Description: "stuck on BST insert", Time: "00:00:10"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "request_help", raw["command"])
	assert.Equal(t, "team_3", raw["header"])
	assert.Contains(t, raw, "body")

	env, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, RequestHelp, env.Command)

	var req models.HelpRequest
	require.NoError(t, env.Bind(&req))
	assert.Equal(t, "stuck on BST insert", req.Description)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformed)

	env, err := Decode([]byte(`{"command":"dance","header":"x","body":{}}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)
	require.NotNil(t, env)
	assert.Equal(t, "x", env.Header)

	env, err = Decode([]byte(`{"command":"tasks_done","header":"team_1"}`))
	require.NoError(t, err)
	assert.ErrorIs(t, env.Bind(&GroupBody{}), ErrMalformed)
}

func TestQueueNumberWireFormat(t *testing.T) {
	payload, err := Encode(QueueNumber, "alice", QueueNumberBody{QueueNumber: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"queue_number","header":"alice","body":{"queue_number":"2"}}`, string(payload))

	env, err := Decode([]byte(`{"command":"queue_number","header":"bob","body":{"queue_number":4}}`))
	require.NoError(t, err)
	var body QueueNumberBody
	require.NoError(t, env.Bind(&body))
	assert.Equal(t, models.Number(4), body.QueueNumber)
}

func TestAllCommandsValid(t *testing.T) {
	for _, c := range []Command{
		SubmitTasks, SubmitTasksLate, RequestHelp, GroupPresent, ReportCurrentTask, TasksDone,
		QueueNumber, GettingHelp, ReceivedHelp, TAPresent, TAPresentAll, TAUpdateTasks,
		TAUpdateReceivingHelp, TAUpdateReceivedHelp, RequestUpdateOfTables, TAUpdateTables,
	} {
		assert.True(t, c.Valid(), c.String())
	}
	assert.Len(t, commands, 16)
	assert.False(t, Command("").Valid())
}
