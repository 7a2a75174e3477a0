package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesTasks(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0, 2)
	done := make(chan struct{}, 2)

	q := New("test", func(_ context.Context, task Task) error {
		mu.Lock()
		seen = append(seen, task.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, Options{Workers: 2}, nil)

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Push(Task{ID: "a", Kind: "archive"}))
	require.NoError(t, q.Push(Task{ID: "b", Kind: "archive"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestQueueRetriesFailedTask(t *testing.T) {
	var calls int32
	done := make(chan struct{})

	q := New("test", func(_ context.Context, _ Task) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, Options{Workers: 1, MaxRetries: 5, Backoff: time.Millisecond}, nil)

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Push(Task{ID: "a"}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never succeeded")
	}
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestQueueRejectsPushBeforeStart(t *testing.T) {
	q := New("test", func(context.Context, Task) error { return nil }, Options{}, nil)

	err := q.Push(Task{ID: "a"})
	require.Error(t, err)
}
