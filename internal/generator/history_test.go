package generator

import (
	"testing"
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
)

func mkPoint(v float64, sec int) models.DataPoint {
	return models.DataPoint{Value: v, Timestamp: time.Unix(int64(sec), 0)}
}

func values(points []models.DataPoint) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		f, _ := models.Numeric(p.Value)
		out = append(out, f)
	}
	return out
}

func TestHistoryBound(t *testing.T) {
	h := newHistory(3)
	for i := 1; i <= 5; i++ {
		h.push(mkPoint(float64(i), i))
	}
	if h.len() != 3 {
		t.Fatalf("len = %d, want 3", h.len())
	}
	got := values(h.snapshot(0))
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}
}

func TestHistoryChronologicalOrder(t *testing.T) {
	h := newHistory(10)
	for i := 1; i <= 7; i++ {
		h.push(mkPoint(float64(i), i))
	}
	points := h.snapshot(0)
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			t.Fatalf("timestamps out of order at %d: %v", i, points)
		}
	}
}

func TestHistorySnapshotLimit(t *testing.T) {
	h := newHistory(5)
	for i := 1; i <= 5; i++ {
		h.push(mkPoint(float64(i), i))
	}

	if got := values(h.snapshot(2)); len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("snapshot(2) = %v, want [4 5]", got)
	}
	if got := h.snapshot(99); len(got) != 5 {
		t.Fatalf("snapshot(99) len = %d, want 5", len(got))
	}
	if got := h.snapshot(-1); len(got) != 5 {
		t.Fatalf("snapshot(-1) len = %d, want 5", len(got))
	}
}

func TestHistorySnapshotIsolated(t *testing.T) {
	h := newHistory(4)
	h.push(mkPoint(1, 1))
	h.push(mkPoint(2, 2))

	snap := h.snapshot(0)
	snap[0].Value = 99.0

	if got := values(h.snapshot(0)); got[0] != 1 {
		t.Fatalf("mutating a snapshot leaked into the buffer: %v", got)
	}
}

func TestHistoryLast(t *testing.T) {
	h := newHistory(2)
	if _, ok := h.last(); ok {
		t.Fatal("last on empty history should report not ok")
	}
	h.push(mkPoint(1, 1))
	h.push(mkPoint(2, 2))
	h.push(mkPoint(3, 3))
	p, ok := h.last()
	if !ok {
		t.Fatal("last should be ok after pushes")
	}
	if f, _ := models.Numeric(p.Value); f != 3 {
		t.Fatalf("last = %v, want 3", p.Value)
	}
}
