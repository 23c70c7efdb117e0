package sink

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSink publishes each record as one NATS message.
//
// With a stream name configured, records are published through JetStream and
// Write waits for the server acknowledgement. Otherwise records are published
// on core NATS, which buffers during reconnects and acknowledges nothing.
type NATSSink struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    config.NATSSinkConfig
	mu     sync.RWMutex
	closed bool
}

// NewNATS connects to the configured servers and, for JetStream, makes sure
// the stream captures the subject.
//
// Example:
//
//	s, err := sink.NewNATS(ctx, config.NATSSinkConfig{
//	    Servers:    []string{"nats://localhost:4222"},
//	    Subject:    "logs.access.orders",
//	    StreamName: "ACCESS_LOGS",
//	})
func NewNATS(ctx context.Context, cfg config.NATSSinkConfig) (*NATSSink, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.NewInvalidInput("sink.nats.servers", "at least one NATS server is required")
	}
	if cfg.Subject == "" {
		return nil, errors.NewInvalidInput("sink.nats.subject", "subject is required")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(
		strings.Join(cfg.Servers, ","),
		nats.Name("reqlog"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, errors.NewTemporary("failed to connect to NATS", err)
	}

	s := &NATSSink{nc: nc, cfg: cfg}

	if cfg.StreamName != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, errors.NewTemporary("failed to create JetStream context", err)
		}
		s.js = js

		if err := s.ensureStream(ctx); err != nil {
			nc.Close()
			return nil, errors.Wrap(err, "failed to ensure access log stream")
		}
	}

	return s, nil
}

// ensureStream creates the stream or adds the subject to an existing one.
func (s *NATSSink) ensureStream(ctx context.Context) error {
	stream, err := s.js.Stream(ctx, s.cfg.StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err != nil {
			return errors.NewTemporary("failed to get stream info", err)
		}
		if slices.Contains(info.Config.Subjects, s.cfg.Subject) {
			return nil
		}

		updated := info.Config
		updated.Subjects = append(updated.Subjects, s.cfg.Subject)
		if _, err := s.js.UpdateStream(ctx, updated); err != nil {
			return errors.NewTemporary("failed to update stream", err)
		}
		return nil
	}

	_, err = s.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        s.cfg.StreamName,
		Description: "HTTP access records",
		Subjects:    []string{s.cfg.Subject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return errors.NewTemporary("failed to create stream", err)
	}
	return nil
}

// Write publishes line, without its trailing newline, to the configured subject.
func (s *NATSSink) Write(ctx context.Context, line []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.NewPermanent("NATS sink is closed", nil)
	}

	data := trimNewline(line)
	if s.js != nil {
		if _, err := s.js.Publish(ctx, s.cfg.Subject, data); err != nil {
			if ctx.Err() != nil {
				return errors.NewTemporary("publish cancelled", ctx.Err())
			}
			return errors.NewTemporary("failed to publish access record", err)
		}
		return nil
	}

	if err := s.nc.Publish(s.cfg.Subject, data); err != nil {
		return errors.NewTemporary("failed to publish access record", err)
	}
	return nil
}

// Check reports whether the connection is up.
func (s *NATSSink) Check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.NewTemporary("NATS sink is closed", nil)
	}
	if status := s.nc.Status(); status != nats.CONNECTED {
		return errors.NewTemporary("NATS connection is "+status.String(), nil)
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (s *NATSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.nc.FlushTimeout(s.cfg.ConnectTimeout)
	s.nc.Close()
	if err != nil {
		return errors.NewTemporary("failed to flush NATS connection", err)
	}
	return nil
}

func (s *NATSSink) String() string {
	return "nats:" + s.cfg.Subject
}
