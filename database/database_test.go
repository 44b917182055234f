package database

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raytar/labhelp/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestDB(t *testing.T) (*Database, *clock) {
	t.Helper()
	db, err := OpenDatabase("file:"+t.Name()+"?mode=memory&cache=shared", logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	db.now = c.now
	return db, c
}

func TestRecordLifecycle(t *testing.T) {
	db, c := openTestDB(t)

	require.NoError(t, db.RecordRequest(models.HelpRequest{Group: "team_1", Description: "stuck", Time: "10:00:00"}))
	c.advance(2 * time.Minute)
	require.NoError(t, db.RecordClaim(models.Assignment{Group: "team_1", Description: "stuck", Time: "10:00:00", TA: "alice"}))
	c.advance(5 * time.Minute)
	require.NoError(t, db.RecordResolved("team_1"))

	records, err := db.History()
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "team_1", r.Group)
	assert.Equal(t, "alice", r.AssistantName)
	assert.True(t, r.Claimed)
	assert.True(t, r.Done)
	assert.Equal(t, models.ReasonHelped, r.Reason)
	assert.NotEmpty(t, r.RecordID)
}

func TestResubmissionClosesOpenRecord(t *testing.T) {
	db, c := openTestDB(t)

	require.NoError(t, db.RecordRequest(models.HelpRequest{Group: "team_1", Description: "first", Time: "10:00:00"}))
	c.advance(time.Minute)
	require.NoError(t, db.RecordRequest(models.HelpRequest{Group: "team_1", Description: "second", Time: "10:01:00"}))

	records, err := db.History()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Done)
	assert.Equal(t, models.ReasonResubmitted, records[0].Reason)
	assert.False(t, records[1].Done)
	assert.Equal(t, "second", records[1].Description)
}

func TestClaimWithoutRequest(t *testing.T) {
	db, _ := openTestDB(t)

	require.NoError(t, db.RecordClaim(models.Assignment{Group: "team_2", Description: "late", Time: "09:00:00", TA: "bob"}))
	records, err := db.History()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Claimed)
	assert.Equal(t, "bob", records[0].AssistantName)
}

func TestResolveUnknownGroup(t *testing.T) {
	db, _ := openTestDB(t)
	assert.Error(t, db.RecordResolved("team_9"))
}

func TestWaitingStats(t *testing.T) {
	db, c := openTestDB(t)

	count, mean, err := db.WaitingStats()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, mean)

	require.NoError(t, db.RecordRequest(models.HelpRequest{Group: "team_1", Time: "10:00:00"}))
	require.NoError(t, db.RecordRequest(models.HelpRequest{Group: "team_2", Time: "10:00:00"}))
	c.advance(2 * time.Minute)
	require.NoError(t, db.RecordClaim(models.Assignment{Group: "team_1", TA: "alice"}))
	c.advance(2 * time.Minute)
	require.NoError(t, db.RecordClaim(models.Assignment{Group: "team_2", TA: "alice"}))

	count, mean, err = db.WaitingStats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 3*time.Minute, mean)
}
