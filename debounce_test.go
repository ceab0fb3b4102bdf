package riokit

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	var fired atomic.Int32
	db := NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	for i := 0; i < 10; i++ {
		db.Trigger()
	}

	waitFor(t, "debounced fire", func() bool { return fired.Load() == 1 })

	time.Sleep(150 * time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("burst should fire once, got %d", fired.Load())
	}
}

func TestDebouncerRestartsWindow(t *testing.T) {
	var fired atomic.Int32
	db := NewDebouncer(300*time.Millisecond, func() { fired.Add(1) })

	db.Trigger()
	time.Sleep(150 * time.Millisecond)
	db.Trigger()

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("window should have been restarted by the second trigger")
	}

	waitFor(t, "debounced fire", func() bool { return fired.Load() == 1 })
}

func TestDebouncerStopDiscardsPress(t *testing.T) {
	var fired atomic.Int32
	db := NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	db.Trigger()
	db.Stop()

	time.Sleep(150 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("stopped debouncer should not fire, got %d", fired.Load())
	}
}

func TestDebouncerFiresPerQuietPress(t *testing.T) {
	var fired atomic.Int32
	db := NewDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	db.Trigger()
	waitFor(t, "first fire", func() bool { return fired.Load() == 1 })

	db.Trigger()
	waitFor(t, "second fire", func() bool { return fired.Load() == 2 })
}
