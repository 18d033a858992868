package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDeliversTasks(t *testing.T) {
	var mu sync.Mutex
	var kinds []string
	done := make(chan struct{}, 2)

	pool := NewPool("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		kinds = append(kinds, task.Kind)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, PoolConfig{Workers: 1})
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Enqueue(Task{ID: "t1", Kind: "first"}))
	require.NoError(t, pool.Enqueue(Task{ID: "t2", Kind: "second"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("task was not delivered")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first", "second"}, kinds)
}

func TestPoolEnqueueBeforeStart(t *testing.T) {
	pool := NewPool("test", func(ctx context.Context, task Task) error { return nil }, PoolConfig{})

	err := pool.Enqueue(Task{ID: "t1"})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPoolEnqueueShedsWhenFull(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool("test", func(ctx context.Context, task Task) error {
		<-block
		return nil
	}, PoolConfig{Workers: 1, BufferSize: 1})
	pool.Start(context.Background())
	defer func() {
		close(block)
		pool.Stop()
	}()

	// First task occupies the worker, second fills the buffer; the third
	// must be shed instead of blocking the caller.
	require.NoError(t, pool.Enqueue(Task{ID: "t1"}))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, pool.Enqueue(Task{ID: "t2"}))

	err := pool.Enqueue(Task{ID: "t3"})
	assert.ErrorIs(t, err, ErrPoolFull)
}
