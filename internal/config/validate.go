package config

import (
	"fmt"
	"net"
	"strings"
	"unicode"
)

var requiredTVs = []string{"TV1", "TV2", "TV3", "TV4"}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// ValidationResult separates validation errors that must block startup
// (Fatals) from ones that are logged and auto-corrected (Warnings).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal validation error was recorded.
func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// AllErrors returns fatals followed by warnings.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks the config for invalid values. Dangerous
// misconfiguration (bad host:port, control characters) is fatal; out-of-range
// numeric settings are clamped to a safe value and reported as a warning, and
// an unrecognised log_level or log_format is reported as a warning only.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.MatrixHost == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("matrix_host must not be empty"))
	}
	if c.MatrixPort <= 0 || c.MatrixPort > 65535 {
		r.Fatals = append(r.Fatals, fmt.Errorf("matrix_port %d is not a valid port", c.MatrixPort))
	}
	if c.IRBridgeHost == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("ir_bridge_host must not be empty"))
	}
	if c.IRBridgePort <= 0 || c.IRBridgePort > 65535 {
		r.Fatals = append(r.Fatals, fmt.Errorf("ir_bridge_port %d is not a valid port", c.IRBridgePort))
	}

	for _, tv := range requiredTVs {
		addr, ok := c.STBAddrs[tv]
		if !ok || addr == "" {
			r.Fatals = append(r.Fatals, fmt.Errorf("stb_addrs missing address for %s", tv))
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			r.Fatals = append(r.Fatals, fmt.Errorf("stb_addrs[%s] = %q is not host:port: %w", tv, addr, err))
		}
	}

	for _, r2 := range c.StateFile {
		if unicode.IsControl(r2) {
			r.Fatals = append(r.Fatals, fmt.Errorf("state_file contains control characters"))
			break
		}
	}

	if c.StbQueueSize < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("stb_queue_size %d is below minimum 1, clamping", c.StbQueueSize))
		c.StbQueueSize = 1
	} else if c.StbQueueSize > 1000 {
		r.Warnings = append(r.Warnings, fmt.Errorf("stb_queue_size %d exceeds maximum 1000, clamping", c.StbQueueSize))
		c.StbQueueSize = 1000
	}

	if c.MatrixReadTimeoutMs < 100 {
		r.Warnings = append(r.Warnings, fmt.Errorf("matrix_read_timeout_ms %d is below minimum 100, clamping", c.MatrixReadTimeoutMs))
		c.MatrixReadTimeoutMs = 100
	} else if c.MatrixReadTimeoutMs > 30000 {
		r.Warnings = append(r.Warnings, fmt.Errorf("matrix_read_timeout_ms %d exceeds maximum 30000, clamping", c.MatrixReadTimeoutMs))
		c.MatrixReadTimeoutMs = 30000
	}

	if c.MatrixSyncWatchdogSecs < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("matrix_sync_watchdog_seconds %d is below minimum 1, clamping", c.MatrixSyncWatchdogSecs))
		c.MatrixSyncWatchdogSecs = 1
	} else if c.MatrixSyncWatchdogSecs > 120 {
		r.Warnings = append(r.Warnings, fmt.Errorf("matrix_sync_watchdog_seconds %d exceeds maximum 120, clamping", c.MatrixSyncWatchdogSecs))
		c.MatrixSyncWatchdogSecs = 120
	}

	if c.IRPulseDelayMs < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("ir_pulse_delay_ms %d is negative, clamping to 0", c.IRPulseDelayMs))
		c.IRPulseDelayMs = 0
	}

	if c.DoubleTapWindowMs < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("double_tap_window_ms %d is below minimum 1, clamping", c.DoubleTapWindowMs))
		c.DoubleTapWindowMs = 1
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		r.Warnings = append(r.Warnings, fmt.Errorf("http_port %d is not valid, resetting to 8787", c.HTTPPort))
		c.HTTPPort = 8787
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}
