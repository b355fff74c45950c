package generator

import (
	"sync"
	"testing"
	"time"

	"github.com/layiku/data-simulator/pkg/config"
)

func tickingWalk(t *testing.T, interval float64) *RandomWalk {
	t.Helper()
	cfg := &config.ObjectConfig{
		DataType:       config.TypeRandom,
		UpdateInterval: interval,
		UpdateRange:    []float64{-1, 1},
	}
	cfg.Normalize()
	g, err := NewRandomWalk("walk", cfg, Deps{Seed: 3})
	if err != nil {
		t.Fatalf("NewRandomWalk: %v", err)
	}
	return g
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	g := tickingWalk(t, 1)
	g.Stop()
	g.Stop()
}

func TestStartStopRunsLoop(t *testing.T) {
	g := tickingWalk(t, 0.005)
	g.Start()

	deadline := time.Now().Add(2 * time.Second)
	for len(g.History(0)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("loop produced no points")
		}
		time.Sleep(10 * time.Millisecond)
	}
	g.Stop()

	n := len(g.History(0))
	time.Sleep(50 * time.Millisecond)
	if got := len(g.History(0)); got != n {
		t.Fatalf("history grew after Stop: %d -> %d", n, got)
	}

	// Stopping again is a no-op.
	g.Stop()
}

func TestStopObservedWithinQuantum(t *testing.T) {
	// A long interval must not delay shutdown: the loop waits on the ticker
	// and the quit channel at once.
	g := tickingWalk(t, 30)
	g.Start()

	start := time.Now()
	g.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Stop took %v, want well under the 30s interval", elapsed)
	}
}

func TestDoubleStartDoesNotCorrupt(t *testing.T) {
	g := tickingWalk(t, 0.005)
	g.Start()
	g.Start()
	time.Sleep(30 * time.Millisecond)
	g.Stop()
}

func TestCurrentBeforeFirstPoint(t *testing.T) {
	g := tickingWalk(t, 1)
	snap := g.Current()
	if snap.Name != "walk" || snap.Value != nil || snap.Timestamp != nil {
		t.Fatalf("empty snapshot = %+v, want null value and timestamp", snap)
	}
}

func TestHistorySnapshotIsIsolated(t *testing.T) {
	g := tickingWalk(t, 1)
	g.Update()
	g.Update()

	points := g.History(0)
	if len(points) != 2 {
		t.Fatalf("history length = %d, want 2", len(points))
	}
	points[0].Value = float64(-9999)

	fresh := g.History(0)
	if fresh[0].Value == points[0].Value {
		t.Fatalf("mutating a snapshot leaked into the buffer")
	}
}

func TestConcurrentUpdatesAndReads(t *testing.T) {
	g := tickingWalk(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Update()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Current()
				g.History(10)
			}
		}()
	}
	wg.Wait()

	points := g.History(0)
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			t.Fatalf("timestamps out of order at %d", i)
		}
	}
}
