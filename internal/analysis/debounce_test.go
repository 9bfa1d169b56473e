package analysis

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(40*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Call()
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Fatal("expected a pending call")
	}
	time.Sleep(150 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Fatalf("callback ran %d times, want 1", n)
	}
	if d.Pending() {
		t.Fatal("still pending after the callback ran")
	}
}

func TestDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Call()
	if !d.Cancel() {
		t.Fatal("Cancel() = false with a pending call")
	}
	if d.Cancel() {
		t.Fatal("Cancel() = true with nothing pending")
	}
	time.Sleep(80 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("callback ran %d times after Cancel", n)
	}
}
