package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateTieredMissingMatrixHostIsFatal(t *testing.T) {
	cfg := Default()
	cfg.MatrixHost = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty matrix_host should be fatal")
	}
}

func TestValidateTieredBadSTBAddrIsFatal(t *testing.T) {
	cfg := Default()
	cfg.STBAddrs["TV1"] = "not-a-host-port"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("malformed stb address should be fatal")
	}
}

func TestValidateTieredMissingTVIsFatal(t *testing.T) {
	cfg := Default()
	delete(cfg.STBAddrs, "TV3")
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("missing TV3 address should be fatal")
	}
	found := false
	for _, err := range result.Fatals {
		if strings.Contains(err.Error(), "TV3") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected TV3 mentioned in fatals")
	}
}

func TestValidateTieredQueueSizeClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.StbQueueSize = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped queue size should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for clamped queue size")
	}
	if cfg.StbQueueSize != 1 {
		t.Fatalf("StbQueueSize = %d, want 1 (clamped)", cfg.StbQueueSize)
	}
}

func TestValidateTieredReadTimeoutClamping(t *testing.T) {
	cfg := Default()
	cfg.MatrixReadTimeoutMs = 50000
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped read timeout should be warning: %v", result.Fatals)
	}
	if cfg.MatrixReadTimeoutMs != 30000 {
		t.Fatalf("MatrixReadTimeoutMs = %d, want 30000", cfg.MatrixReadTimeoutMs)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.MatrixHost = ""  // fatal
	cfg.LogLevel = "bogus" // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) < 2 {
		t.Fatalf("AllErrors() returned %d errors, expected at least 2 (fatals + warnings)", len(all))
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}
