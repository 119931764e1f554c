package keen

import "testing"

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.CollectorHost = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty collector host")
	}

	cfg = DefaultConfig()
	cfg.APIVersion = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty api version")
	}

	cfg = DefaultConfig()
	cfg.Workers = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative workers")
	}
}

func TestConfigWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 7
	if got := cfg.workerCount(); got != 7 {
		t.Errorf("explicit worker count = %d, want 7", got)
	}
	cfg.Workers = 0
	if got := cfg.workerCount(); got < 1 {
		t.Errorf("auto worker count = %d, want at least 1", got)
	}
}
