package workers

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

func TestNew(t *testing.T) {
	assert.Equal(t, 1, New(0).Size())
	assert.Equal(t, 1, New(-3).Size())
	assert.Equal(t, 8, New(8).Size())
}

func TestDo_ReturnsJobError(t *testing.T) {
	p := New(2)
	want := errors.New("boom")

	assert.NoError(t, p.Do(context.Background(), func() error { return nil }))
	assert.ErrorIs(t, p.Do(context.Background(), func() error { return want }), want)
}

func TestDo_RecoversPanic(t *testing.T) {
	p := New(1)

	err := p.Do(context.Background(), func() error { panic("bad image") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")

	// The slot must have been released.
	assert.NoError(t, p.Do(context.Background(), func() error { return nil }))
}

func TestDo_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := New(size)

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func() error {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestDo_CancelWhileWaiting(t *testing.T) {
	p := New(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := p.Do(ctx, func() error { ran = true; return nil })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	close(release)
}
