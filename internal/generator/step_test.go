package generator

import (
	"testing"
	"time"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/pkg/config"
)

func stepCfg(vals []float64, dwell float64, loop bool) *config.ObjectConfig {
	cfg := &config.ObjectConfig{
		DataType:  config.TypeStep,
		Values:    vals,
		DwellTime: dwell,
		Loop:      &loop,
	}
	cfg.Normalize()
	cfg.DwellTime = dwell // keep an explicit zero dwell for instant stepping
	return cfg
}

func TestStepSequenceExactOrder(t *testing.T) {
	g, err := NewStepSequence("mode", stepCfg([]float64{1, 2, 3}, 0, false), Deps{})
	if err != nil {
		t.Fatalf("NewStepSequence: %v", err)
	}

	for i := 0; i < 10; i++ {
		g.Update()
	}
	got := values(g.History(0))
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history = %v, want %v", got, want)
		}
	}

	// Non-loop sequences hold the final value.
	v, _ := models.Numeric(g.Current().Value)
	if v != 3 {
		t.Fatalf("final value = %v, want 3", v)
	}
}

func TestStepSequenceLoops(t *testing.T) {
	g, err := NewStepSequence("mode", stepCfg([]float64{1, 2}, 0, true), Deps{})
	if err != nil {
		t.Fatalf("NewStepSequence: %v", err)
	}

	for i := 0; i < 6; i++ {
		g.Update()
	}
	got := values(g.History(0))
	want := []float64{1, 2, 1, 2, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history = %v, want %v", got, want)
		}
	}
}

func TestStepSequenceDedupsWhileDwelling(t *testing.T) {
	g, err := NewStepSequence("mode", stepCfg([]float64{7, 8}, 3600, true), Deps{})
	if err != nil {
		t.Fatalf("NewStepSequence: %v", err)
	}

	for i := 0; i < 5; i++ {
		g.Update()
	}
	if got := values(g.History(0)); len(got) != 1 || got[0] != 7 {
		t.Fatalf("history = %v, want single [7] while dwelling", got)
	}

	// The snapshot timestamp still refreshes on deduped cycles.
	first := g.Current()
	time.Sleep(5 * time.Millisecond)
	g.Update()
	second := g.Current()
	if !second.Timestamp.After(*first.Timestamp) {
		t.Fatalf("snapshot timestamp did not refresh: %v then %v", first.Timestamp, second.Timestamp)
	}
}

func TestStepSequenceSingleValueNeverRepeats(t *testing.T) {
	g, err := NewStepSequence("mode", stepCfg([]float64{5}, 0, true), Deps{})
	if err != nil {
		t.Fatalf("NewStepSequence: %v", err)
	}
	for i := 0; i < 4; i++ {
		g.Update()
	}
	if got := values(g.History(0)); len(got) != 1 || got[0] != 5 {
		t.Fatalf("history = %v, want single [5]", got)
	}
}

func TestStepSequenceEmptyValuesNoOp(t *testing.T) {
	cfg := &config.ObjectConfig{DataType: config.TypeStep, HistoryLimit: 10, UpdateInterval: 1, Values: []float64{}}
	g, err := NewStepSequence("mode", cfg, Deps{})
	if err != nil {
		t.Fatalf("NewStepSequence: %v", err)
	}
	g.Update()
	if len(g.History(0)) != 0 {
		t.Fatal("empty values list must not append")
	}
	if snap := g.Current(); snap.Value != nil {
		t.Fatalf("empty values list must keep a null snapshot, got %+v", snap)
	}
}
