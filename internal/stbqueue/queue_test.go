package stbqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweeks/multiviewer/internal/stbclient"
	"github.com/sweeks/multiviewer/internal/tv"
)

func waitSynced(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Synced(ctx); err != nil {
		t.Fatalf("Synced: %v", err)
	}
}

func TestEnqueueRunsJobsInOrder(t *testing.T) {
	client := stbclient.New(tv.TV1, "127.0.0.1:1", time.Second, false)
	q := New(client, 8)
	defer q.Close()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		i := i
		q.Enqueue("noop", func(c *stbclient.Client) error {
			order = append(order, i)
			if i == 2 {
				close(done)
			}
			return nil
		})
	}
	waitSynced(t, q)
	<-done
	for i, v := range order {
		if v != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestRetryOnFailureThenSucceed(t *testing.T) {
	client := stbclient.New(tv.TV1, "127.0.0.1:1", time.Second, false)
	q := New(client, 8)
	defer q.Close()

	var attempts atomic.Int32
	q.Enqueue("flaky", func(c *stbclient.Client) error {
		n := attempts.Add(1)
		if n == 1 {
			return errors.New("boom")
		}
		return nil
	})
	waitSynced(t, q)
	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
}

func TestJobDroppedAfterExhaustingRetries(t *testing.T) {
	client := stbclient.New(tv.TV1, "127.0.0.1:1", time.Second, false)
	q := New(client, 8)
	defer q.Close()

	var attempts atomic.Int32
	q.Enqueue("always-fails", func(c *stbclient.Client) error {
		attempts.Add(1)
		return errors.New("boom")
	})
	waitSynced(t, q)
	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2 (maxAttempts)", got)
	}
}

func TestInScreensaverTracksLastCompletedJob(t *testing.T) {
	client := stbclient.New(tv.TV1, "127.0.0.1:1", time.Second, false)
	q := New(client, 8)
	defer q.Close()

	q.Enqueue(screensaverLabel, func(c *stbclient.Client) error { return nil })
	waitSynced(t, q)
	if !q.InScreensaver() {
		t.Fatalf("expected InScreensaver after a screensaver job")
	}

	q.Enqueue("select", func(c *stbclient.Client) error { return nil })
	waitSynced(t, q)
	if q.InScreensaver() {
		t.Fatalf("expected InScreensaver to clear after a non-screensaver job")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	client := stbclient.New(tv.TV1, "127.0.0.1:1", time.Second, false)
	q := New(client, 1)
	defer q.Close()

	block := make(chan struct{})
	q.Enqueue("blocker", func(c *stbclient.Client) error {
		<-block
		return nil
	})
	// Give the worker a moment to pick up the blocker job so the channel
	// buffer (size 1) is actually free to accept the next enqueue.
	time.Sleep(10 * time.Millisecond)

	q.Enqueue("buffered", func(c *stbclient.Client) error { return nil })
	// The queue (capacity 1) is now full with no worker free to drain it;
	// this one should be dropped rather than block Enqueue.
	q.Enqueue("dropped", func(c *stbclient.Client) error {
		t.Fatalf("dropped job should never run")
		return nil
	})

	close(block)
	waitSynced(t, q)
}
