package sink

import (
	"context"
	"io"
	"os"

	"github.com/Combine-Capital/reqlog/pkg/errors"
)

// WriterSink writes records to an io.Writer such as os.Stdout or a file.
type WriterSink struct {
	name   string
	w      io.Writer
	closer io.Closer
}

// NewWriterSink wraps w. Close does not close w; use NewFileSink for files
// owned by the sink.
func NewWriterSink(name string, w io.Writer) *WriterSink {
	return &WriterSink{name: name, w: w}
}

// NewFileSink opens path for appending, creating it if needed.
func NewFileSink(path string) (*WriterSink, error) {
	if path == "" {
		return nil, errors.NewInvalidInput("sink.path", "must not be empty")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.NewPermanent("failed to open access log file", err)
	}
	return &WriterSink{name: "file:" + path, w: f, closer: f}, nil
}

// Write writes line in a single call so that lines from one process are not split.
func (s *WriterSink) Write(ctx context.Context, line []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.w.Write(line); err != nil {
		return errors.NewTemporary("failed to write access record", err)
	}
	return nil
}

// Close closes the underlying file, if the sink owns one.
func (s *WriterSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *WriterSink) String() string {
	return s.name
}
