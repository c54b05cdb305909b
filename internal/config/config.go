package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	PeerPort          int
	SocketPath        string
	DBPath            string
	ReportInterval    time.Duration
	ReconnectDelay    time.Duration
	IdleThreshold     time.Duration
	MetadataTTL       time.Duration
	MaxReportSeconds  int64
	ConnectTimeout    time.Duration
	UserAgent         string
	ExtensionVersion  string
	Capabilities      []string
	MaxInboundMessage int
}

// fileConfig is the YAML schema. Durations are plain integers with the unit
// in the key name; pointers distinguish absent keys from zero values.
type fileConfig struct {
	PeerPort              *int     `yaml:"peer_port"`
	SocketPath            *string  `yaml:"socket_path"`
	DBPath                *string  `yaml:"db_path"`
	ReportIntervalSeconds *int     `yaml:"report_interval_seconds"`
	ReconnectDelaySeconds *int     `yaml:"reconnect_delay_seconds"`
	IdleThresholdSeconds  *int     `yaml:"idle_threshold_seconds"`
	MetadataTTLDays       *int     `yaml:"metadata_ttl_days"`
	MaxReportSeconds      *int64   `yaml:"max_report_seconds"`
	ConnectTimeoutSeconds *int     `yaml:"connect_timeout_seconds"`
	UserAgent             *string  `yaml:"user_agent"`
	ExtensionVersion      *string  `yaml:"extension_version"`
	Capabilities          []string `yaml:"capabilities"`
	MaxInboundMessage     *int     `yaml:"max_inbound_message"`
}

func DefaultConfig() Config {
	return Config{
		PeerPort:          24817,
		SocketPath:        defaultSocketPath(),
		DBPath:            defaultDBPath(),
		ReportInterval:    30 * time.Second,
		ReconnectDelay:    5 * time.Second,
		IdleThreshold:     60 * time.Second,
		MetadataTTL:       7 * 24 * time.Hour,
		MaxReportSeconds:  35,
		ConnectTimeout:    3 * time.Second,
		UserAgent:         "",
		ExtensionVersion:  "0.4.2",
		Capabilities:      []string{"usage_report", "metadata_update"},
		MaxInboundMessage: 256 * 1024,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyFile(&cfg, fc)
	if cfg.PeerPort <= 0 || cfg.PeerPort > 65535 {
		return cfg, fmt.Errorf("parse config: peer_port out of range: %d", cfg.PeerPort)
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = DefaultConfig().ReportInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultConfig().ReconnectDelay
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.PeerPort != nil {
		cfg.PeerPort = *fc.PeerPort
	}
	if fc.SocketPath != nil {
		cfg.SocketPath = *fc.SocketPath
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.ReportIntervalSeconds != nil {
		cfg.ReportInterval = time.Duration(*fc.ReportIntervalSeconds) * time.Second
	}
	if fc.ReconnectDelaySeconds != nil {
		cfg.ReconnectDelay = time.Duration(*fc.ReconnectDelaySeconds) * time.Second
	}
	if fc.IdleThresholdSeconds != nil {
		cfg.IdleThreshold = time.Duration(*fc.IdleThresholdSeconds) * time.Second
	}
	if fc.MetadataTTLDays != nil {
		cfg.MetadataTTL = time.Duration(*fc.MetadataTTLDays) * 24 * time.Hour
	}
	if fc.MaxReportSeconds != nil {
		cfg.MaxReportSeconds = *fc.MaxReportSeconds
	}
	if fc.ConnectTimeoutSeconds != nil {
		cfg.ConnectTimeout = time.Duration(*fc.ConnectTimeoutSeconds) * time.Second
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = *fc.UserAgent
	}
	if fc.ExtensionVersion != nil {
		cfg.ExtensionVersion = *fc.ExtensionVersion
	}
	if fc.Capabilities != nil {
		cfg.Capabilities = fc.Capabilities
	}
	if fc.MaxInboundMessage != nil {
		cfg.MaxInboundMessage = *fc.MaxInboundMessage
	}
}

func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "webtrack", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "webtrack.yaml"
	}
	return filepath.Join(home, ".config", "webtrack", "config.yaml")
}

func defaultSocketPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir != "" {
		return filepath.Join(runtimeDir, "webtrack", "webtrackd.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webtrackd.sock"
	}
	return filepath.Join(home, ".local", "state", "webtrack", "webtrackd.sock")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "webtrack.db"
	}
	return filepath.Join(home, ".local", "state", "webtrack", "state.db")
}
