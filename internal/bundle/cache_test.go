package bundle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/leapstack-labs/psplay/internal/linker"
	"github.com/leapstack-labs/psplay/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const source = `var PS = {}; PS["Prelude"] = {};`

func TestGet_FetchesOnce(t *testing.T) {
	var calls atomic.Int32
	c := New(FetcherFunc(func(context.Context) (string, error) {
		calls.Add(1)
		return source, nil
	}), testutil.NewTestLogger(t))

	assert.False(t, c.Loaded())
	first, err := c.Get(context.Background())
	require.NoError(t, err)
	second, err := c.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.True(t, c.Loaded())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), c.Fetches())
	assert.True(t, first.Provides("Prelude"))
}

func TestGet_ConcurrentFirstCallersShareFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := New(FetcherFunc(func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return source, nil
	}), testutil.NewTestLogger(t))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*linker.Bundle, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Get(context.Background())
			assert.NoError(t, err)
			results[i] = b
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}

func TestGet_FailureIsNotCached(t *testing.T) {
	boom := errors.New("bundle endpoint down")
	var calls atomic.Int32
	c := New(FetcherFunc(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return source, nil
	}), testutil.NewTestLogger(t))

	_, err := c.Get(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, c.Loaded())

	b, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, int64(2), c.Fetches())
}

func TestGet_CompileFailureIsNotCached(t *testing.T) {
	c := New(FetcherFunc(func(context.Context) (string, error) {
		return "var PS = {", nil
	}), testutil.NewTestLogger(t))

	_, err := c.Get(context.Background())
	require.ErrorIs(t, err, linker.ErrLink)
	assert.False(t, c.Loaded())
}

func TestGet_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	c := New(FetcherFunc(func(context.Context) (string, error) {
		<-release
		return source, nil
	}), testutil.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	b, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestPreloaded(t *testing.T) {
	b, err := linker.CompileBundle(source)
	require.NoError(t, err)

	c := Preloaded(b)
	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Zero(t, c.Fetches())
}
