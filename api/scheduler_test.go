package api

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSweeper struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeSweeper) CompleteDue(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestVacationSweeper_RunNow(t *testing.T) {
	fake := &fakeSweeper{n: 3}
	s := NewVacationSweeper(fake, time.Hour, zaptest.NewLogger(t))

	n, err := s.RunNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	last, lastN := s.LastRun()
	assert.False(t, last.IsZero())
	assert.Equal(t, 3, lastN)
}

func TestVacationSweeper_RunNowReturnsError(t *testing.T) {
	fake := &fakeSweeper{err: errors.New("disk full")}
	s := NewVacationSweeper(fake, time.Hour, nil)

	_, err := s.RunNow(context.Background())

	assert.EqualError(t, err, "disk full")
}

func TestVacationSweeper_StartSweepsImmediately(t *testing.T) {
	fake := &fakeSweeper{}
	s := NewVacationSweeper(fake, time.Hour, zaptest.NewLogger(t))

	s.Start(context.Background())
	s.Start(context.Background()) // no-op while running
	require.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestVacationSweeper_Ticks(t *testing.T) {
	fake := &fakeSweeper{}
	s := NewVacationSweeper(fake, 10*time.Millisecond, nil)

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return fake.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestNewVacationSweeper_DefaultInterval(t *testing.T) {
	s := NewVacationSweeper(&fakeSweeper{}, 0, nil)

	assert.Equal(t, time.Hour, s.Interval)
}
