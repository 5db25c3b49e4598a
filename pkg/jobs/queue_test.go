package jobs

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

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var got []string

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, job.ID)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Type: "t"}))
	require.NoError(t, q.Enqueue(Job{ID: "b", Type: "t"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 5, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Type: "t"}))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "a"})
	require.Error(t, err)
}

func TestQueueDepth(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})

	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	require.NoError(t, q.Enqueue(Job{ID: "c"}))

	assert.Eventually(t, func() bool { return q.Depth() >= 1 }, time.Second, 5*time.Millisecond)

	close(block)
	q.Stop()
}
