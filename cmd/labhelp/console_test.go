package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raytar/labhelp"
	"github.com/Raytar/labhelp/bus/memory"
	"github.com/Raytar/labhelp/database"
	"github.com/Raytar/labhelp/models"
	"github.com/Raytar/labhelp/protocol"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseTask(t *testing.T) {
	task, err := parseTask("10  Write the parser ")
	require.NoError(t, err)
	assert.Equal(t, models.Task{Description: "Write the parser", Duration: 10}, task)

	for _, args := range []string{"", "ten Write", "0 Write", "-3 Write", "5", "5   "} {
		_, err := parseTask(args)
		assert.Error(t, err, args)
	}
}

func TestJoinArgs(t *testing.T) {
	assert.Equal(t, "Team 1", joinArgs([]string{"Team", "1"}))
	assert.Equal(t, "alice", joinArgs([]string{" alice "}))
}

func TestInitConfigDefaults(t *testing.T) {
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	addFlags(flags)
	cfg, err := initConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, "amqp", cfg.Bus)
	assert.Equal(t, protocol.DefaultPrefix, cfg.TopicPrefix)
	assert.Equal(t, database.DefaultPath, cfg.DBPath)
	assert.Equal(t, labhelp.DefaultReminder, cfg.Reminder)
}

func TestInitConfigPrecedence(t *testing.T) {
	t.Setenv("LABHELP_BUS", "redis")
	t.Setenv("LABHELP_REDIS_ADDR", "secret@cache:6379")

	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	addFlags(flags)
	require.NoError(t, flags.Parse([]string{"--redis-addr", "other:6379", "--reminder", "30s"}))
	cfg, err := initConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Bus)
	assert.Equal(t, "other:6379", cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Reminder)
}

func TestOpenBus(t *testing.T) {
	log.SetOutput(io.Discard)
	b, err := openBus(context.Background(), config{Bus: "memory"})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = openBus(context.Background(), config{Bus: "carrier-pigeon"})
	assert.EqualError(t, err, `unknown bus "carrier-pigeon"`)
}

func TestUsage(t *testing.T) {
	out := new(syncBuffer)
	ta := &console{out: newPrinter(out), commands: assistantCommands, ta: new(labhelp.Assistant)}
	require.NoError(t, ta.exec(context.Background(), "?"))
	assert.Contains(t, out.String(), "claim <group>")
	assert.Contains(t, out.String(), "submit")

	out = new(syncBuffer)
	group := &console{out: newPrinter(out), commands: groupCommands}
	require.NoError(t, group.exec(context.Background(), "?"))
	assert.Contains(t, out.String(), "help <description>")
	assert.NotContains(t, out.String(), "claim")
}

func TestExecUnknownAndQuit(t *testing.T) {
	out := new(syncBuffer)
	c := &console{out: newPrinter(out), commands: groupCommands}
	require.NoError(t, c.exec(context.Background(), "   "))
	require.NoError(t, c.exec(context.Background(), "dance now"))
	assert.Contains(t, out.String(), `Unknown command "dance"`)
	assert.ErrorIs(t, c.exec(context.Background(), "quit"), errQuit)

	lines := make(chan string, 1)
	lines <- "quit"
	assert.ErrorIs(t, c.run(context.Background(), lines), errQuit)

	drained := make(chan string)
	close(drained)
	assert.ErrorIs(t, c.run(context.Background(), drained), errQuit)
}

func TestHistoryWithoutJournal(t *testing.T) {
	out := new(syncBuffer)
	c := &console{out: newPrinter(out), commands: assistantCommands}
	assert.EqualError(t, c.exec(context.Background(), "history"), "no journal")
	assert.Contains(t, out.String(), "no journal")
}

func TestConsoleSession(t *testing.T) {
	ctx := context.Background()
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	b := memory.New()
	t.Cleanup(func() { _ = b.Close() })
	db, err := database.OpenDatabase("file:"+t.Name()+"?mode=memory&cache=shared", quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	session, err := labhelp.New(labhelp.Config{
		Bus:         b,
		Log:         quiet,
		Journal:     db,
		SyncTimeout: 10 * time.Millisecond,
		Reminder:    -1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	taOut, groupOut := new(syncBuffer), new(syncBuffer)
	taCon := &console{out: newPrinter(taOut), commands: assistantCommands, db: db}
	taCon.ta, err = session.JoinAsTA(ctx, "alice", taCon.out)
	require.NoError(t, err)
	groupCon := &console{out: newPrinter(groupOut), commands: groupCommands}
	groupCon.group, err = session.JoinAsGroup(ctx, "team_1", groupCon.out)
	require.NoError(t, err)

	require.NoError(t, taCon.exec(ctx, "task 10 Set up the project"))
	require.NoError(t, taCon.exec(ctx, "task 5 Write tests"))
	require.NoError(t, taCon.exec(ctx, "submit"))
	assert.Empty(t, taCon.staged)
	assert.Eventually(t, func() bool {
		return strings.Contains(groupOut.String(), "Set up the project")
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		v, err := groupCon.group.View(ctx)
		return err == nil && v.TAPresent
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, groupCon.exec(ctx, "help Stuck on the parser"))
	assert.Eventually(t, func() bool {
		return strings.Contains(groupOut.String(), "Number in queue: 1")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, taCon.exec(ctx, "queue"))
	assert.Contains(t, taOut.String(), "Stuck on the parser")
	require.NoError(t, taCon.exec(ctx, "claim team_1"))
	assert.Eventually(t, func() bool {
		return strings.Contains(groupOut.String(), labhelp.HelpGetting)
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, taCon.exec(ctx, "resolve team_1"))
	assert.Eventually(t, func() bool {
		return strings.Contains(groupOut.String(), labhelp.HelpReceived)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, taCon.exec(ctx, "history"))
	assert.Contains(t, taOut.String(), "1 requests claimed")

	require.NoError(t, groupCon.exec(ctx, "done"))
	require.NoError(t, groupCon.exec(ctx, "status"))
	assert.Contains(t, groupOut.String(), "task:   2 of 2, Write tests")

	assert.ErrorIs(t, taCon.exec(ctx, "claim team_9"), labhelp.ErrGroupNotQueued)
	assert.Contains(t, taOut.String(), "group is not in the help queue: team_9")
}
