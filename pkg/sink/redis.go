package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis sink modes.
const (
	RedisModeList   = "list"
	RedisModeStream = "stream"
)

// RedisStreamField is the stream entry field holding the serialized record.
const RedisStreamField = "record"

// RedisSink appends records to a Redis list or stream.
type RedisSink struct {
	client *redis.Client
	cfg    config.RedisSinkConfig
}

// NewRedis creates a Redis client for the sink and pings it once.
func NewRedis(ctx context.Context, cfg config.RedisSinkConfig) (*RedisSink, error) {
	if cfg.Host == "" {
		return nil, errors.NewInvalidInput("sink.redis.host", "host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	if cfg.Key == "" {
		cfg.Key = "reqlog:access"
	}
	if cfg.Mode == "" {
		cfg.Mode = RedisModeList
	}
	if cfg.Mode != RedisModeList && cfg.Mode != RedisModeStream {
		return nil, errors.NewInvalidInput("sink.redis.mode", "must be one of list, stream")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewTemporary("failed to connect to Redis", err)
	}

	return &RedisSink{client: client, cfg: cfg}, nil
}

// Write appends line to the configured key. The trailing newline is stripped
// since each list element or stream entry already holds exactly one record.
func (s *RedisSink) Write(ctx context.Context, line []byte) error {
	record := string(trimNewline(line))

	if s.cfg.Mode == RedisModeStream {
		args := &redis.XAddArgs{
			Stream: s.cfg.Key,
			Values: map[string]any{RedisStreamField: record},
		}
		if s.cfg.MaxLen > 0 {
			args.MaxLen = s.cfg.MaxLen
			args.Approx = true
		}
		if err := s.client.XAdd(ctx, args).Err(); err != nil {
			return errors.NewTemporary("failed to add access record to stream", err)
		}
		return nil
	}

	if s.cfg.MaxLen <= 0 {
		if err := s.client.RPush(ctx, s.cfg.Key, record).Err(); err != nil {
			return errors.NewTemporary("failed to push access record", err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.cfg.Key, record)
	pipe.LTrim(ctx, s.cfg.Key, -s.cfg.MaxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.NewTemporary("failed to push access record", err)
	}
	return nil
}

// Check pings the Redis server.
func (s *RedisSink) Check(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.NewTemporary("redis ping failed", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) String() string {
	return "redis:" + s.cfg.Key
}

func trimNewline(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		return line[:n-1]
	}
	return line
}
