package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/sweeks/multiviewer/internal/logging"
)

var log = logging.L("config")

// Config holds all mvd configuration, bound from environment variables
// (MVD_ prefix), a YAML file, and built-in defaults, in that order of
// precedence (env overrides file, file overrides defaults).
type Config struct {
	MatrixHost string `mapstructure:"matrix_host"`
	MatrixPort int    `mapstructure:"matrix_port"`

	IRBridgeHost string `mapstructure:"ir_bridge_host"`
	IRBridgePort int    `mapstructure:"ir_bridge_port"`

	// STBAddrs maps TV1..TV4 to "host:port" addresses of their set-top box.
	STBAddrs map[string]string `mapstructure:"stb_addrs"`

	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port"`
	WSEnabled bool  `mapstructure:"ws_enabled"`

	StateFile string `mapstructure:"state_file"`
	PIDFile   string `mapstructure:"pid_file"`

	StbQueueSize            int `mapstructure:"stb_queue_size"`
	MatrixReadTimeoutMs     int `mapstructure:"matrix_read_timeout_ms"`
	MatrixSyncWatchdogSecs  int `mapstructure:"matrix_sync_watchdog_seconds"`
	IRPulseDelayMs          int `mapstructure:"ir_pulse_delay_ms"`
	DoubleTapWindowMs       int `mapstructure:"double_tap_window_ms"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// Default returns the built-in configuration baseline.
func Default() *Config {
	return &Config{
		MatrixHost: "matrix.local",
		MatrixPort: 4999,

		IRBridgeHost: "irbridge.local",
		IRBridgePort: 4998,

		STBAddrs: map[string]string{
			"TV1": "tv1.local:3689",
			"TV2": "tv2.local:3689",
			"TV3": "tv3.local:3689",
			"TV4": "tv4.local:3689",
		},

		HTTPHost:  "0.0.0.0",
		HTTPPort:  8787,
		WSEnabled: true,

		StateFile: filepath.Join(GetDataDir(), "state.json"),
		PIDFile:   filepath.Join(GetDataDir(), "mvd.pid"),

		StbQueueSize:           16,
		MatrixReadTimeoutMs:    1000,
		MatrixSyncWatchdogSecs: 10,
		IRPulseDelayMs:         250,
		DoubleTapWindowMs:      300,

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
	}
}

// Load reads configuration from cfgFile (or the default search path when
// empty), overlays environment variables, and validates the result.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mvd")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("MVD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// Save writes cfg to its default location.
func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

// SaveTo writes cfg as YAML to cfgFile, or the default config path when empty.
func SaveTo(cfg *Config, cfgFile string) error {
	v := viper.New()
	v.Set("matrix_host", cfg.MatrixHost)
	v.Set("matrix_port", cfg.MatrixPort)
	v.Set("ir_bridge_host", cfg.IRBridgeHost)
	v.Set("ir_bridge_port", cfg.IRBridgePort)
	v.Set("stb_addrs", cfg.STBAddrs)
	v.Set("http_host", cfg.HTTPHost)
	v.Set("http_port", cfg.HTTPPort)
	v.Set("ws_enabled", cfg.WSEnabled)
	v.Set("state_file", cfg.StateFile)
	v.Set("pid_file", cfg.PIDFile)
	v.Set("stb_queue_size", cfg.StbQueueSize)
	v.Set("matrix_read_timeout_ms", cfg.MatrixReadTimeoutMs)
	v.Set("matrix_sync_watchdog_seconds", cfg.MatrixSyncWatchdogSecs)
	v.Set("ir_pulse_delay_ms", cfg.IRPulseDelayMs)
	v.Set("double_tap_window_ms", cfg.DoubleTapWindowMs)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)
	v.Set("log_file", cfg.LogFile)
	v.Set("log_max_size_mb", cfg.LogMaxSizeMB)
	v.Set("log_max_backups", cfg.LogMaxBackups)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
	} else {
		cfgPath = filepath.Join(configDir(), "mvd.yaml")
	}
	dir := filepath.Dir(cfgPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	return v.WriteConfigAs(cfgPath)
}

// GetDataDir returns the platform-specific data directory for mvd.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "mvd", "data")
	case "darwin":
		return "/Library/Application Support/mvd/data"
	default:
		return "/var/lib/mvd"
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "mvd")
	case "darwin":
		return "/Library/Application Support/mvd"
	default:
		return "/etc/mvd"
	}
}
