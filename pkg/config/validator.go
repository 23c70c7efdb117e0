package config

import (
	"fmt"
	"strings"
	"time"
)

// Request log defaults.
const (
	DefaultQueueSize    = 1000
	DefaultErrorInfoKey = "error_info"
	DefaultDropPolicy   = "oldest"
	DefaultDrainTimeout = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// DefaultClientIPHeaders returns the client IP header candidates used when none are configured.
func DefaultClientIPHeaders() []string {
	return []string{"x-forwarded-for", "x-real-ip"}
}

// DefaultErrorInfoMapping returns the error-info key to record field mapping
// used when none is configured.
func DefaultErrorInfoMapping() map[string]string {
	return map[string]string{
		"code":        "error_code",
		"message":     "error_message",
		"stack_trace": "stack_trace",
	}
}

// Validate validates the configuration and returns an error if any required fields are missing
// or have invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.HTTPPort == 0 {
		return fmt.Errorf("server.http_port is required")
	}

	if err := ValidateRequestLog(cfg.RequestLog); err != nil {
		return err
	}

	if err := validateSink(cfg.Sink); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == 0 {
			return fmt.Errorf("metrics.port is required when metrics are enabled")
		}
	}

	return nil
}

// ValidateRequestLog validates request logging settings after defaults have been applied.
func ValidateRequestLog(rl RequestLogConfig) error {
	if rl.QueueSize <= 0 {
		return fmt.Errorf("request_log.queue_size must be positive, got %d", rl.QueueSize)
	}
	switch rl.DropPolicy {
	case "oldest", "newest":
	default:
		return fmt.Errorf("request_log.drop_policy must be one of oldest, newest, got %q", rl.DropPolicy)
	}
	if rl.DrainTimeout < 0 {
		return fmt.Errorf("request_log.drain_timeout must not be negative")
	}
	if rl.WriteTimeout < 0 {
		return fmt.Errorf("request_log.write_timeout must not be negative")
	}
	for source, target := range rl.ErrorInfoMapping {
		if source == "" || target == "" {
			return fmt.Errorf("request_log.error_info_mapping entries must have non-empty keys and values")
		}
	}
	return nil
}

func validateSink(s SinkConfig) error {
	switch strings.ToLower(s.Type) {
	case "stdout", "stderr":
	case "file":
		if s.Path == "" {
			return fmt.Errorf("sink.path is required when sink.type is file")
		}
	case "nats":
		if len(s.NATS.Servers) == 0 {
			return fmt.Errorf("sink.nats.servers is required when sink.type is nats")
		}
		if s.NATS.Subject == "" {
			return fmt.Errorf("sink.nats.subject is required when sink.type is nats")
		}
	case "redis":
		if s.Redis.Host == "" {
			return fmt.Errorf("sink.redis.host is required when sink.type is redis")
		}
		if s.Redis.Mode != "list" && s.Redis.Mode != "stream" {
			return fmt.Errorf("sink.redis.mode must be one of list, stream, got %q", s.Redis.Mode)
		}
		if s.Redis.MaxLen < 0 {
			return fmt.Errorf("sink.redis.max_len must not be negative")
		}
	case "http":
		if s.HTTP.URL == "" {
			return fmt.Errorf("sink.http.url is required when sink.type is http")
		}
		if s.HTTP.RateLimit < 0 {
			return fmt.Errorf("sink.http.rate_limit must not be negative")
		}
	case "postgres":
		if s.Postgres.Host == "" {
			return fmt.Errorf("sink.postgres.host is required when sink.type is postgres")
		}
		if s.Postgres.User == "" {
			return fmt.Errorf("sink.postgres.user is required when sink.type is postgres")
		}
		if s.Postgres.Database == "" {
			return fmt.Errorf("sink.postgres.database is required when sink.type is postgres")
		}
	default:
		return fmt.Errorf("sink.type %q is not supported", s.Type)
	}
	return nil
}

// ApplyRequestLogDefaults fills unset request logging settings with their defaults.
func ApplyRequestLogDefaults(rl *RequestLogConfig) {
	if rl.ClientIPHeaders == nil {
		rl.ClientIPHeaders = DefaultClientIPHeaders()
	}
	if rl.ErrorInfoKey == "" {
		rl.ErrorInfoKey = DefaultErrorInfoKey
	}
	if rl.ErrorInfoMapping == nil {
		rl.ErrorInfoMapping = DefaultErrorInfoMapping()
	}
	if rl.QueueSize == 0 {
		rl.QueueSize = DefaultQueueSize
	}
	if rl.DropPolicy == "" {
		rl.DropPolicy = DefaultDropPolicy
	}
	rl.DropPolicy = strings.ToLower(rl.DropPolicy)
	if rl.DrainTimeout == 0 {
		rl.DrainTimeout = DefaultDrainTimeout
	}
	if rl.WriteTimeout == 0 {
		rl.WriteTimeout = DefaultWriteTimeout
	}
}

// applyDefaults applies default values to the configuration where values are not set.
func applyDefaults(cfg *Config) {
	if cfg.Service.Env == "" {
		cfg.Service.Env = "development"
	}

	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}

	ApplyRequestLogDefaults(&cfg.RequestLog)

	// Sink defaults
	if cfg.Sink.Type == "" {
		cfg.Sink.Type = "stdout"
	}
	cfg.Sink.Type = strings.ToLower(cfg.Sink.Type)
	if cfg.Sink.NATS.ConnectTimeout == 0 {
		cfg.Sink.NATS.ConnectTimeout = 5 * time.Second
	}
	if cfg.Sink.NATS.ReconnectWait == 0 {
		cfg.Sink.NATS.ReconnectWait = 2 * time.Second
	}
	if cfg.Sink.Redis.Port == 0 && cfg.Sink.Redis.Host != "" {
		cfg.Sink.Redis.Port = 6379
	}
	if cfg.Sink.Redis.Key == "" {
		cfg.Sink.Redis.Key = "reqlog:access"
	}
	if cfg.Sink.Redis.Mode == "" {
		cfg.Sink.Redis.Mode = "list"
	}
	if cfg.Sink.Redis.DialTimeout == 0 {
		cfg.Sink.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Sink.Redis.WriteTimeout == 0 {
		cfg.Sink.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Sink.HTTP.Timeout == 0 {
		cfg.Sink.HTTP.Timeout = 10 * time.Second
	}
	if cfg.Sink.HTTP.RateBurst == 0 && cfg.Sink.HTTP.RateLimit > 0 {
		cfg.Sink.HTTP.RateBurst = 1
	}
	if cfg.Sink.Postgres.Port == 0 && cfg.Sink.Postgres.Host != "" {
		cfg.Sink.Postgres.Port = 5432
	}
	if cfg.Sink.Postgres.SSLMode == "" {
		cfg.Sink.Postgres.SSLMode = "prefer"
	}
	if cfg.Sink.Postgres.Table == "" {
		cfg.Sink.Postgres.Table = "request_logs"
	}
	if cfg.Sink.Postgres.MaxConns == 0 {
		cfg.Sink.Postgres.MaxConns = 4
	}
	if cfg.Sink.Postgres.ConnectTimeout == 0 {
		cfg.Sink.Postgres.ConnectTimeout = 30 * time.Second
	}

	if cfg.Metrics.Port == 0 && cfg.Metrics.Enabled {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" && cfg.Service.Name != "" {
		cfg.Metrics.Namespace = cfg.Service.Name
	}
}
