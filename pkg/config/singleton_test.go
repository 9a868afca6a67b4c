package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeAndReload(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "aegis.yaml")
	if err := os.WriteFile(path, []byte("safety:\n  pass_threshold: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if GetConfig() != nil {
		t.Fatal("GetConfig() before Initialize should be nil")
	}
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := MustGetConfig().Safety.PassThreshold; got != 60 {
		t.Errorf("PassThreshold = %d, want 60", got)
	}

	// A second Initialize is a no-op.
	if err := Initialize(""); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if got := GetConfig().Safety.PassThreshold; got != 60 {
		t.Errorf("PassThreshold after second Initialize = %d, want 60", got)
	}

	if err := os.WriteFile(path, []byte("safety:\n  pass_threshold: 75\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg.Safety.PassThreshold != 75 || GetConfig() != cfg {
		t.Errorf("Reload() did not install the new config")
	}

	// A broken file keeps the active configuration.
	if err := os.WriteFile(path, []byte("safety:\n  pass_threshold: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Reload(); err == nil {
		t.Error("Reload() of invalid config should fail")
	}
	if GetConfig().Safety.PassThreshold != 75 {
		t.Error("failed Reload() replaced the active config")
	}
}

func TestInitializeError(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if err := Initialize(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Initialize() with a missing file should fail")
	}
	if GetConfig() != nil {
		t.Error("failed Initialize() should not install a config")
	}
}

func TestMustGetConfigPanics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig() should panic before Initialize")
		}
	}()
	MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg := Defaults()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("SetConfig() did not install the config")
	}
}
