// Package config provides configuration management for reqlog services.
// It supports loading configuration from YAML files, JSON files, and environment variables
// with automatic validation and default value application.
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml", "REQLOG")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Or panic on error:
//	cfg := config.MustLoad("config.yaml", "REQLOG")
package config

import (
	"time"
)

// Config represents the complete configuration for a service using the request logger.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	RequestLog RequestLogConfig `mapstructure:"request_log"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServiceConfig contains general service information.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// LogConfig contains configuration for the service's own diagnostic logger.
// Access records never go through this logger; see SinkConfig.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// RequestLogConfig contains the construction-time settings of the request
// logging middleware. Values are copied when the middleware is built.
type RequestLogConfig struct {
	// EventIDHeader is the inbound header carrying a correlation id.
	// Empty means an id is always generated.
	EventIDHeader string `mapstructure:"event_id_header"`

	// ClientIPHeaders are checked in order before falling back to the peer address.
	ClientIPHeaders []string `mapstructure:"client_ip_headers"`

	// ErrorInfoKey is the side-channel key handlers store error details under.
	ErrorInfoKey string `mapstructure:"error_info_key"`

	// ErrorInfoMapping maps error-info keys to record field names.
	ErrorInfoMapping map[string]string `mapstructure:"error_info_mapping"`

	QueueSize    int           `mapstructure:"queue_size"`
	DropPolicy   string        `mapstructure:"drop_policy"` // oldest, newest
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ExcludePaths are request paths that are never logged (e.g. health probes).
	ExcludePaths []string `mapstructure:"exclude_paths"`

	// TraceFields adds trace_id and span_id from the active OpenTelemetry span.
	TraceFields bool `mapstructure:"trace_fields"`
}

// SinkConfig selects and configures the destination of access records.
type SinkConfig struct {
	Type     string             `mapstructure:"type"` // stdout, stderr, file, nats, redis, http, postgres
	Path     string             `mapstructure:"path"` // file sink only
	NATS     NATSSinkConfig     `mapstructure:"nats"`
	Redis    RedisSinkConfig    `mapstructure:"redis"`
	HTTP     HTTPSinkConfig     `mapstructure:"http"`
	Postgres PostgresSinkConfig `mapstructure:"postgres"`
}

// NATSSinkConfig contains NATS publishing configuration.
type NATSSinkConfig struct {
	Servers        []string      `mapstructure:"servers"`
	Subject        string        `mapstructure:"subject"`
	StreamName     string        `mapstructure:"stream_name"` // enables JetStream publishing with acks
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
}

// RedisSinkConfig contains Redis list/stream configuration.
type RedisSinkConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Key          string        `mapstructure:"key"`
	Mode         string        `mapstructure:"mode"`    // list, stream
	MaxLen       int64         `mapstructure:"max_len"` // 0 means unbounded
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HTTPSinkConfig contains configuration for shipping records to an HTTP collector.
type HTTPSinkConfig struct {
	URL       string            `mapstructure:"url"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Headers   map[string]string `mapstructure:"headers"`
	RateLimit float64           `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst int               `mapstructure:"rate_burst"`
}

// PostgresSinkConfig contains PostgreSQL connection configuration.
type PostgresSinkConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Database       string        `mapstructure:"database"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"ssl_mode"` // disable, require, verify-ca, verify-full
	Table          string        `mapstructure:"table"`
	MaxConns       int           `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"` // Metric prefix
}
