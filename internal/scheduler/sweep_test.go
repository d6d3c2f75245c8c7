package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepOffline(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestLivenessSweep_RunOnce(t *testing.T) {
	sw := &countingSweeper{err: errors.New("db down")}
	s := NewLivenessSweep(sw, "@every 1m", nil)

	s.RunOnce()
	s.RunOnce()

	assert.Equal(t, int32(2), sw.calls.Load())
}

func TestLivenessSweep_RejectsBadSchedule(t *testing.T) {
	s := NewLivenessSweep(&countingSweeper{}, "every minute please", nil)
	assert.Error(t, s.Start())
}

func TestLivenessSweep_RunsOnSchedule(t *testing.T) {
	sw := &countingSweeper{}
	s := NewLivenessSweep(sw, "@every 1s", nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)
}
