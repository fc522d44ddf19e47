package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evo-platform/evo-core/internal/config"
)

func testWatchdog() config.WatchdogConfig {
	return config.WatchdogConfig{
		MaxRestarts:      3,
		InitialBackoffMs: 10,
		MaxBackoffS:      1,
		StableRunS:       3600,
		SigtermTimeoutS:  1,
		HalReadyTimeoutS: 2,
	}
}

func TestChildEntersDegradedAfterMaxRestarts(t *testing.T) {
	c := NewChild("flaky", "/bin/false", nil, testWatchdog(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c.Run(ctx)
	assert.True(t, c.Degraded())
}

func TestChildRunsLongLivedProcessUntilCancelled(t *testing.T) {
	c := NewChild("sleeper", "/bin/sleep", []string{"30"}, testWatchdog(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.False(t, c.Degraded())
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	max := 1 * time.Second
	b := 100 * time.Millisecond
	b = nextBackoff(b, max)
	assert.Equal(t, 200*time.Millisecond, b)
	b = nextBackoff(b, max)
	assert.Equal(t, 400*time.Millisecond, b)
	for i := 0; i < 10; i++ {
		b = nextBackoff(b, max)
	}
	assert.Equal(t, max, b)
}
