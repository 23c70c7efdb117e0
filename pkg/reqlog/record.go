package reqlog

import (
	"bytes"
	"encoding/json"
	"time"
)

// Record is one access log entry: field name to JSON-serializable value.
type Record map[string]any

// Timing describes when a request completed and how long it took.
type Timing struct {
	Completed time.Time
	Elapsed   time.Duration
}

// Build assembles a record. Extra fields overlay the base access fields and
// error fields overlay both, last write wins. When errFields is non-empty the
// level is ERROR unless errFields itself sets it.
func Build(access AccessFields, errFields, extra map[string]any, timing Timing, status int) Record {
	elapsed := timing.Elapsed
	if elapsed < 0 {
		elapsed = 0
	}

	rec := make(Record, 10+len(extra)+len(errFields))
	rec[FieldTimestamp] = timing.Completed.UTC().Format(TimestampFormat)
	rec[FieldEventID] = access.EventID
	rec[FieldMethod] = access.Method
	rec[FieldPath] = access.Path
	rec[FieldClientIP] = access.ClientIP
	rec[FieldUserAgent] = access.UserAgent
	rec[FieldTimeTaken] = elapsed.Milliseconds()
	rec[FieldStatusCode] = status
	rec[FieldLogType] = LogTypeAccess
	rec[FieldLevel] = LevelInfo

	for k, v := range extra {
		rec[k] = v
	}
	for k, v := range errFields {
		rec[k] = v
	}
	if len(errFields) > 0 {
		if _, mapped := errFields[FieldLevel]; !mapped {
			rec[FieldLevel] = LevelError
		}
	}
	return rec
}

// Encode serializes rec as a single line of JSON terminated by '\n'.
// Non-ASCII text and HTML characters are written as is.
func Encode(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
