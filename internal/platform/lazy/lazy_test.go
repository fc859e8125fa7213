package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conn struct{ id int32 }

func TestValue_ConcurrentFirstCallsShareOneAttempt(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	v := New(func(ctx context.Context) (*conn, error) {
		n := calls.Add(1)
		<-release
		return &conn{id: n}, nil
	}, Options{})

	const callers = 50
	results := make([]*conn, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = v.Get(context.Background())
		}(i)
	}

	// Deja que los goroutines se encolen antes de liberar el intento.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "expected exactly one connection attempt")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}

	got, ok := v.Peek()
	require.True(t, ok)
	assert.Same(t, results[0], got)
}

func TestValue_FailedAttemptIsRetried(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("dial failed")

	v := New(func(ctx context.Context) (*conn, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &conn{id: 2}, nil
	}, Options{})

	_, err := v.Get(context.Background())
	require.ErrorIs(t, err, boom)

	_, ok := v.Peek()
	assert.False(t, ok)

	c, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), c.id)
	assert.Equal(t, int32(2), calls.Load())
}

func TestValue_StickyErrorsNeverRetry(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("dial failed")

	v := New(func(ctx context.Context) (*conn, error) {
		calls.Add(1)
		return nil, boom
	}, Options{StickyErrors: true})

	for i := 0; i < 3; i++ {
		_, err := v.Get(context.Background())
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestValue_CallerCancellationDoesNotAbortSharedAttempt(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	v := New(func(ctx context.Context) (*conn, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return &conn{id: 1}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, Options{InitTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := v.Get(ctx)
		errCh <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	c, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), c.id)
	assert.Equal(t, int32(1), calls.Load())
}

func TestValue_InitTimeoutBoundsAttempt(t *testing.T) {
	v := New(func(ctx context.Context) (*conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options{InitTimeout: 10 * time.Millisecond})

	_, err := v.Get(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValue_NilInit(t *testing.T) {
	var v *Value[*conn]
	_, err := v.Get(context.Background())
	assert.ErrorIs(t, err, ErrNilInit)
}
