package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration with viper.
// CLI flags > environment > config file > defaults precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults matching Default()
	v.SetDefault("rules_dir", "/etc/hostguard/rules")
	v.SetDefault("probe_object", "/usr/lib/hostguard/sockmon.bpf.o")
	v.SetDefault("nats_url", "")
	v.SetDefault("subject_prefix", "hostguard")
	v.SetDefault("metrics_addr", ":9107")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Bind environment variables with HG_ prefix
	v.SetEnvPrefix("HG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		RulesDir:      v.GetString("rules_dir"),
		ProbeObject:   v.GetString("probe_object"),
		NATSURL:       v.GetString("nats_url"),
		SubjectPrefix: v.GetString("subject_prefix"),
		MetricsAddr:   v.GetString("metrics_addr"),
		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
