package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
environment: test
server:
  port: 9100
  read_timeout: 750ms
log:
  level: debug
cache:
  enabled: true
  ttl: 0.5
stream:
  interval: 2
objects:
  cpu_load:
    data_type: random
    base_value: 50
    min_value: 0
    max_value: 100
  mode:
    data_type: step
    values: [1, 2, 3]
    dwell_time: 0.2
  orders:
    data_type: order
    unit: kW
  total:
    data_type: sum
    source_objects: [cpu_load, mode]
`

func TestParseDefaultsAndOrder(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{"cpu_load", "mode", "orders", "total"}
	if len(c.ObjectOrder) != len(want) {
		t.Fatalf("object order length = %d, want %d", len(c.ObjectOrder), len(want))
	}
	for i, name := range want {
		if c.ObjectOrder[i] != name {
			t.Fatalf("object order[%d] = %q, want %q", i, c.ObjectOrder[i], name)
		}
	}

	cpu := c.Objects["cpu_load"]
	if cpu.HistoryLimit != 200 {
		t.Errorf("random history_limit = %d, want 200", cpu.HistoryLimit)
	}
	if cpu.UpdateInterval != 1.0 {
		t.Errorf("random update_interval = %v, want 1.0", cpu.UpdateInterval)
	}
	if len(cpu.UpdateRange) != 2 || cpu.UpdateRange[0] != -1 || cpu.UpdateRange[1] != 1 {
		t.Errorf("random update_range = %v, want [-1 1]", cpu.UpdateRange)
	}

	ord := c.Objects["orders"]
	if ord.HistoryLimit != 20 {
		t.Errorf("order history_limit = %d, want 20", ord.HistoryLimit)
	}
	if len(ord.Locations) != 4 {
		t.Errorf("order locations = %v, want 4 defaults", ord.Locations)
	}
	if len(ord.IntervalRange) != 2 || ord.IntervalRange[0] != 5 || ord.IntervalRange[1] != 30 {
		t.Errorf("order interval_range = %v, want [5 30]", ord.IntervalRange)
	}

	sum := c.Objects["total"]
	if sum.UpdateInterval != 5.0 {
		t.Errorf("sum update_interval = %v, want 5.0", sum.UpdateInterval)
	}

	step := c.Objects["mode"]
	if !step.Looping() {
		t.Errorf("step loop default = false, want true")
	}
	if step.Dwell() != 200*time.Millisecond {
		t.Errorf("step dwell = %v, want 200ms", step.Dwell())
	}
}

func TestDurationForms(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Server.ReadTimeout.Std() != 750*time.Millisecond {
		t.Errorf("read_timeout = %v, want 750ms", c.Server.ReadTimeout.Std())
	}
	if c.Cache.TTL.Std() != 500*time.Millisecond {
		t.Errorf("cache ttl = %v, want 500ms", c.Cache.TTL.Std())
	}
	if c.Stream.Interval.Std() != 2*time.Second {
		t.Errorf("stream interval = %v, want 2s", c.Stream.Interval.Std())
	}
}

func TestGlobalDefaults(t *testing.T) {
	c, err := Parse([]byte("objects: {}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Server.Host != "0.0.0.0" || c.Server.Port != 8000 {
		t.Errorf("server defaults = %s:%d, want 0.0.0.0:8000", c.Server.Host, c.Server.Port)
	}
	if c.Pipeline.Backend != "none" {
		t.Errorf("pipeline backend default = %q, want none", c.Pipeline.Backend)
	}
	if c.Engine.ShutdownWait.Std() != time.Second {
		t.Errorf("shutdown_wait default = %v, want 1s", c.Engine.ShutdownWait.Std())
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad log format", "log: {format: xml}"},
		{"bad pipeline backend", "pipeline: {backend: mysql}"},
		{"kafka without brokers", "pipeline: {backend: kafka}"},
		{"bad port", "server: {port: 99999}"},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.yaml)); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	t.Setenv("SIM_SERVER_PORT", "9999")
	t.Setenv("SIM_LOG_LEVEL", "warn")
	t.Setenv("SIM_PIPELINE_BACKEND", "none")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if c.Server.Port != 9999 {
		t.Errorf("env port override = %d, want 9999", c.Server.Port)
	}
	if c.Log.Level != "warn" {
		t.Errorf("env log level override = %q, want warn", c.Log.Level)
	}
}
