package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Raytar/labhelp/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []string
}

func (r *recorder) handle(topic string, payload []byte) {
	r.got = append(r.got, topic+"="+string(payload))
}

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ctx := context.Background()

	var all, one recorder
	require.NoError(t, b.Subscribe(ctx, "lab/request/#", all.handle))
	require.NoError(t, b.Subscribe(ctx, "lab/request/team_1", one.handle))

	require.NoError(t, b.Publish(ctx, "lab/request/team_1", []byte("a")))
	require.NoError(t, b.Publish(ctx, "lab/request/team_2", []byte("b")))
	require.NoError(t, b.Publish(ctx, "lab/present/team_1", []byte("c")))

	assert.Equal(t, []string{"lab/request/team_1=a", "lab/request/team_2=b"}, all.got)
	assert.Equal(t, []string{"lab/request/team_1=a"}, one.got)
}

func TestPayloadIsCopied(t *testing.T) {
	b := New()
	ctx := context.Background()
	var got []byte
	require.NoError(t, b.Subscribe(ctx, "x", func(_ string, p []byte) { got = p }))

	payload := []byte("abc")
	require.NoError(t, b.Publish(ctx, "x", payload))
	payload[0] = 'z'
	assert.Equal(t, "abc", string(got))
}

func TestUnsubscribeOnCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	var r recorder
	require.NoError(t, b.Subscribe(ctx, "x", r.handle))
	cancel()

	assert.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.subs) == 0
	}, time.Second, time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), "x", []byte("late")))
	assert.Empty(t, r.got)
}

func TestClosed(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(context.Background(), "x", nil), bus.ErrClosed)
	assert.ErrorIs(t, b.Subscribe(context.Background(), "x", func(string, []byte) {}), bus.ErrClosed)
}
