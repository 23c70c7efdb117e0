// Package sink provides destinations for serialized access records.
//
// A Sink receives one newline-terminated JSON line per Write call. Sinks are
// driven by a single emitter goroutine and therefore need not be safe for
// concurrent use. They do not retry: a failed Write is reported to the caller
// and the record is considered lost.
//
// Example usage:
//
//	s, err := sink.New(ctx, cfg.Sink)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
package sink

import (
	"context"
	"os"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
)

// Sink is the final destination of serialized access records.
type Sink interface {
	// Write delivers one serialized record. line includes the trailing newline
	// and must not be retained after Write returns.
	Write(ctx context.Context, line []byte) error

	// Close releases the sink's resources. No Write follows Close.
	Close() error
}

// Checker is implemented by sinks that can report their connectivity.
type Checker interface {
	Check(ctx context.Context) error
}

// New builds the sink selected by cfg.Type. Networked sinks verify
// connectivity before returning.
func New(ctx context.Context, cfg config.SinkConfig) (Sink, error) {
	switch cfg.Type {
	case "stdout", "":
		return NewWriterSink("stdout", os.Stdout), nil
	case "stderr":
		return NewWriterSink("stderr", os.Stderr), nil
	case "file":
		return NewFileSink(cfg.Path)
	case "nats":
		return NewNATS(ctx, cfg.NATS)
	case "redis":
		return NewRedis(ctx, cfg.Redis)
	case "http":
		return NewHTTP(cfg.HTTP)
	case "postgres":
		return NewPostgres(ctx, cfg.Postgres)
	default:
		return nil, errors.NewInvalidInput("sink.type", "unsupported sink "+cfg.Type)
	}
}
