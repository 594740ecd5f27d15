// Package config provides configuration management for the hostguard monitor.
package config

import (
	"fmt"
)

// Config holds the monitor's runtime configuration.
type Config struct {
	RulesDir      string // root of the rule file tree
	ProbeObject   string // compiled BPF object attached at startup
	NATSURL       string // external bus endpoint; empty disables mirroring
	SubjectPrefix string // NATS subject root
	MetricsAddr   string // prometheus listen address; empty disables
	LogLevel      string // debug, info, warn, error
	LogFormat     string // json, text
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		RulesDir:      "/etc/hostguard/rules",
		ProbeObject:   "/usr/lib/hostguard/sockmon.bpf.o",
		NATSURL:       "",
		SubjectPrefix: "hostguard",
		MetricsAddr:   ":9107",
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Validate checks field ranges and enumerations.
func Validate(cfg *Config) error {
	if cfg.RulesDir == "" {
		return fmt.Errorf("rules_dir must not be empty")
	}
	if cfg.ProbeObject == "" {
		return fmt.Errorf("probe_object must not be empty")
	}
	if cfg.SubjectPrefix == "" {
		return fmt.Errorf("subject_prefix must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", cfg.LogFormat)
	}
	return nil
}
