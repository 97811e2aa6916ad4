package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50, RandomDelayMs: 20})
	start := time.Now()

	timing.WaitFrom(context.Background(), start, false)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_SuccessSkipsDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 200})
	start := time.Now()

	timing.WaitFrom(context.Background(), start, true)

	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AccountsForElapsed(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50})
	start := time.Now().Add(-time.Second)

	before := time.Now()
	timing.WaitFrom(context.Background(), start, false)

	assert.Less(t, time.Since(before), 20*time.Millisecond)
}

func TestTimingDelay_WaitFrom_HonorsCancel(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 5000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	timing.WaitFrom(ctx, start, false)

	assert.Less(t, time.Since(start), time.Second)
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var timing *auth.TimingDelay
	assert.NotPanics(t, func() { timing.WaitFrom(context.Background(), time.Now(), false) })
}
