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
	calls int64
	err   error
}

func (s *countingSweeper) SweepExpired(ctx context.Context) (int64, error) {
	atomic.AddInt64(&s.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return 3, s.err
}

func TestTokenSweepScheduler_RunOnce(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewTokenSweepScheduler(sweeper, "", time.Second)

	s.RunOnce()
	sweeper.err = errors.New("database is down")
	s.RunOnce()

	assert.Equal(t, int64(2), atomic.LoadInt64(&sweeper.calls))
	assert.Equal(t, DefaultSweepSchedule, s.schedule)
}

func TestTokenSweepScheduler_StartRunsOnSchedule(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewTokenSweepScheduler(sweeper, "@every 1s", time.Second)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&sweeper.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestTokenSweepScheduler_InvalidSchedule(t *testing.T) {
	s := NewTokenSweepScheduler(&countingSweeper{}, "not a schedule", time.Second)

	assert.Error(t, s.Start())
}
