package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr() != "127.0.0.1:5000" {
		t.Fatalf("addr = %s", cfg.ListenAddr())
	}
	if cfg.AckTimeout != 2*time.Second || cfg.RetransmitEvery != 500*time.Millisecond {
		t.Fatalf("timing = %v / %v", cfg.AckTimeout, cfg.RetransmitEvery)
	}
	if cfg.MaxRetries != 5 || cfg.DedupBound != 5000 || cfg.BufferSize != 4096 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POKEWIRE_PORT", "9100")
	t.Setenv("POKEWIRE_ACK_TIMEOUT", "750ms")
	t.Setenv("POKEWIRE_MAX_RETRIES", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenPort != 9100 || cfg.AckTimeout != 750*time.Millisecond || cfg.MaxRetries != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidationRejectsBadValues(t *testing.T) {
	t.Setenv("POKEWIRE_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatal("out-of-range port should fail")
	}

	t.Setenv("POKEWIRE_PORT", "5000")
	t.Setenv("POKEWIRE_ACK_TIMEOUT", "-1s")
	if _, err := Load(); err == nil {
		t.Fatal("negative timeout should fail")
	}
}
