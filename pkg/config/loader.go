package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from a file and environment variables.
// The prefix parameter is used for environment variable names (e.g., "REQLOG" -> REQLOG_SINK_TYPE).
// If configPath is empty, only environment variables will be used.
func Load(configPath, envPrefix string) (*Config, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// registerKeys binds the scalar keys to their environment variables so that
// they can be set without a config file. Defaults are applied after
// unmarshalling by applyDefaults.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.http_port",
		"log.level",
		"log.format",
		"log.output",
		"request_log.event_id_header",
		"request_log.error_info_key",
		"request_log.queue_size",
		"request_log.drop_policy",
		"request_log.drain_timeout",
		"request_log.write_timeout",
		"request_log.trace_fields",
		"sink.type",
		"sink.path",
		"sink.nats.subject",
		"sink.nats.stream_name",
		"sink.redis.host",
		"sink.redis.port",
		"sink.redis.key",
		"sink.redis.mode",
		"sink.http.url",
		"sink.postgres.host",
		"sink.postgres.table",
		"metrics.enabled",
		"metrics.port",
	} {
		_ = v.BindEnv(key)
	}
}

// MustLoad loads configuration and panics on error.
// This is useful in main() where configuration errors should be fatal.
func MustLoad(configPath, envPrefix string) *Config {
	cfg, err := Load(configPath, envPrefix)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration only from environment variables (no config file).
func LoadFromEnv(envPrefix string) (*Config, error) {
	return Load("", envPrefix)
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
func MustLoadFromEnv(envPrefix string) *Config {
	return MustLoad("", envPrefix)
}
