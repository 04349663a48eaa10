package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testService struct {
	*BaseService

	starts int
	stops  int
}

func (ts *testService) OnStart(context.Context) error { ts.starts++; return nil }
func (ts *testService) OnStop()                       { ts.stops++ }

func newTestService() *testService {
	ts := &testService{}
	ts.BaseService = NewBaseService(nil, "TestService", ts)
	return ts
}

func TestBaseServiceWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService()
	require.NoError(t, ts.Start(ctx))

	waitFinished := make(chan struct{})
	go func() {
		ts.Wait()
		waitFinished <- struct{}{}
	}()

	go ts.Stop() //nolint:errcheck // ignore for tests

	select {
	case <-waitFinished:
		// all good
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected Wait() to finish within 100 ms.")
	}
}

func TestBaseServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	ts := newTestService()

	require.ErrorIs(t, ts.Stop(), ErrNotStarted)
	require.NoError(t, ts.Start(ctx))
	require.True(t, ts.IsRunning())
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, ts.Stop())
	require.False(t, ts.IsRunning())
	require.True(t, ts.IsStopped())
	require.ErrorIs(t, ts.Stop(), ErrAlreadyStopped)

	require.Equal(t, 1, ts.starts)
	require.Equal(t, 1, ts.stops)
}

func TestBaseServiceStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := newTestService()
	require.NoError(t, ts.Start(ctx))

	cancel()

	select {
	case <-ts.Quit():
	case <-time.After(time.Second):
		t.Fatal("service was not stopped after context cancellation")
	}
	require.False(t, ts.IsRunning())
}
