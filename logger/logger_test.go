package logger

import (
	"testing"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("executor")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "executor" {
		t.Errorf("expected service 'executor', got %q", l.service)
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	cfg := &Config{
		Level:  "not-a-level",
		Format: "json",
		Output: "stdout",
	}
	l := New(cfg, "svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponent(t *testing.T) {
	l := Nop().WithComponent("wal")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	// Must not panic when logging through a derived logger.
	l.Info("recovered", Fields("entry_id", "abc"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("operation", "send_message", "attempt", 3)
	if m["operation"] != "send_message" {
		t.Errorf("expected operation field, got %v", m)
	}
	if m["attempt"] != 3 {
		t.Errorf("expected attempt field, got %v", m)
	}
}

func TestFieldsOddArgs(t *testing.T) {
	m := Fields("only-key")
	if len(m) != 0 {
		t.Errorf("expected empty map for odd args, got %v", m)
	}
}
