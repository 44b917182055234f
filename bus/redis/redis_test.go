package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raytar/labhelp/bus"
)

func TestGlob(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"#", "*"},
		{"lab/tasks", "lab/tasks"},
		{"lab/request/#", "lab/request*"},
		{"lab/+/team_1", "lab/*/team_1"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Glob(tc.pattern), "Glob(%q)", tc.pattern)
	}
}

func TestSplitPassword(t *testing.T) {
	addrs := []string{"s3cr@t@cache:6379", "replica:6379"}
	password, out := splitPassword(addrs)
	assert.Equal(t, "s3cr@t", password)
	assert.Equal(t, []string{"cache:6379", "replica:6379"}, out)
	assert.Equal(t, []string{"s3cr@t@cache:6379", "replica:6379"}, addrs)

	password, out = splitPassword([]string{"localhost:6379"})
	assert.Empty(t, password)
	assert.Equal(t, []string{"localhost:6379"}, out)
}

func TestBrokerRoundTrip(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL is not defined")
	}

	ctx := context.Background()
	b, err := New(ctx, []string{redisURL}, 0, logrus.New())
	require.NoError(t, err)
	defer b.Close()

	var (
		mu  sync.Mutex
		got []string
	)
	require.NoError(t, b.Subscribe(ctx, "lab/request/#", func(topic string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, topic+"="+string(payload))
	}))
	// PSUBSCRIBE is not acknowledged synchronously
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, b.Publish(ctx, "lab/request/team_1", []byte("a")))
	require.NoError(t, b.Publish(ctx, "lab/requests/team_1", []byte("b")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "lab/request/team_1=a"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(ctx, "lab/request/team_1", nil), bus.ErrClosed)
}
