package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFuture_CompleteOnce(t *testing.T) {
	f := NewFuture[int]()

	if f.IsDone() {
		t.Fatal("expected new future to be pending")
	}
	if _, err := f.Result(); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("Result() error = %v, want ErrNotCompleted", err)
	}

	if !f.Complete(7) {
		t.Fatal("expected first Complete to succeed")
	}
	if f.Complete(8) {
		t.Error("expected second Complete to be rejected")
	}
	if f.Fail(errors.New("late")) {
		t.Error("expected Fail after Complete to be rejected")
	}

	v, err := f.Result()
	if err != nil || v != 7 {
		t.Errorf("Result() = (%d, %v), want (7, nil)", v, err)
	}
}

func TestFuture_FailNilCarriesCause(t *testing.T) {
	f := NewFuture[string]()
	f.Fail(nil)

	if !errors.Is(f.Err(), ErrNotCompleted) {
		t.Errorf("Err() = %v, want ErrNotCompleted", f.Err())
	}
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestFuture_OnComplete(t *testing.T) {
	f := NewFuture[int]()

	var got []int
	f.OnComplete(func(v int, err error) { got = append(got, v) })
	f.Complete(3)
	f.OnComplete(func(v int, err error) { got = append(got, v*2) })

	if len(got) != 2 || got[0] != 3 || got[1] != 6 {
		t.Errorf("callbacks observed %v, want [3 6]", got)
	}
}

func TestMailbox_FIFOAndDrainAfterClose(t *testing.T) {
	m := NewMailbox[int]()
	m.Submit(1)
	m.SubmitAll(2, 3)
	m.Close()

	if m.Submit(4) {
		t.Error("expected Submit after Close to be rejected")
	}

	var got []int
	for {
		v, ok := m.Receive()
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("received %v, want [1 2 3]", got)
	}
}

func TestMailbox_ReceiveBlocksUntilSubmit(t *testing.T) {
	m := NewMailbox[string]()
	received := make(chan string)

	go func() {
		v, _ := m.Receive()
		received <- v
	}()

	select {
	case <-received:
		t.Fatal("Receive returned before any submission")
	case <-time.After(20 * time.Millisecond):
	}

	m.Submit("hello")
	select {
	case v := <-received:
		if v != "hello" {
			t.Errorf("received %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not wake up")
	}
	m.Close()
}

func TestScheduler_RunsAllTasksBeforeClose(t *testing.T) {
	s := NewScheduler(WithWorkers(3))

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		s.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if count.Load() != 50 {
		t.Errorf("ran %d tasks, want 50", count.Load())
	}
	if s.Submit(func() {}) {
		t.Error("expected Submit after Close to be rejected")
	}
}

func TestScheduler_CallRecoversPanic(t *testing.T) {
	s := NewScheduler(WithWorkers(1))
	defer s.Close()

	f := Call(s, func() (int, error) { panic("boom") })
	if _, err := f.Wait(context.Background()); err == nil {
		t.Fatal("expected panicking task to fail its future")
	}

	ok := Run(s, func() error { return nil })
	if _, err := ok.Wait(context.Background()); err != nil {
		t.Errorf("worker should survive a panic, got %v", err)
	}
}

func TestScheduler_CallAfterClose(t *testing.T) {
	s := NewScheduler(WithWorkers(1))
	_ = s.Close()

	f := Call(s, func() (int, error) { return 1, nil })
	if !errors.Is(f.Err(), ErrSchedulerClosed) {
		t.Errorf("Err() = %v, want ErrSchedulerClosed", f.Err())
	}
}
