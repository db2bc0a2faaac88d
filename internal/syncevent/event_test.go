package syncevent

import (
	"context"
	"testing"
	"time"
)

func TestWaitBlocksUntilSet(t *testing.T) {
	e := New()
	done := make(chan struct{})
	go func() {
		_ = e.Wait(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Set was called")
	case <-time.After(20 * time.Millisecond):
	}

	e.Set()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
}

func TestWaitReturnsImmediatelyWhenAlreadySet(t *testing.T) {
	e := New()
	e.Set()
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestClearResetsEvent(t *testing.T) {
	e := New()
	e.Set()
	e.Clear()
	if e.IsSet() {
		t.Fatal("IsSet() = true after Clear")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Wait(ctx); err == nil {
		t.Fatal("Wait returned nil on a cleared event with no Set")
	}
}

func TestSetIsIdempotent(t *testing.T) {
	e := New()
	e.Set()
	e.Set()
	if !e.IsSet() {
		t.Fatal("IsSet() = false after two Set calls")
	}
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Wait(ctx); err == nil {
		t.Fatal("Wait should report ctx.Err() once canceled")
	}
}
