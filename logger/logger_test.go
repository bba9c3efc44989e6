package logger

import (
	"errors"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:  "invalid-level",
		Format: "json",
		Output: "stdout",
	}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestWithComponent(t *testing.T) {
	l := NewDefault("svc").WithComponent("runner")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "svc" {
		t.Errorf("component logger should keep service, got %q", l.service)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps enabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Level: "info", Format: "json"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid level")
	}

	cfg.Level = "info"
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestFields(t *testing.T) {
	m := Fields(FieldTaskID, "build", FieldBatch, 2)
	if m[FieldTaskID] != "build" {
		t.Errorf("expected task_id=build, got %v", m[FieldTaskID])
	}
	if m[FieldBatch] != 2 {
		t.Errorf("expected batch=2, got %v", m[FieldBatch])
	}
}

func TestFields_OddArgsIgnored(t *testing.T) {
	m := Fields("key", "value", "dangling")
	if len(m) != 1 {
		t.Errorf("expected 1 field, got %d", len(m))
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("save", errors.New("disk full"))
	if m[FieldOperation] != "save" || m[FieldError] != "disk full" {
		t.Errorf("unexpected fields: %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("sort", 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", m[FieldDuration])
	}
}
